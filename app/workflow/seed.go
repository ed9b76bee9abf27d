package workflow

import "log/slog"

var curatedWorkflows = []Record{
	{
		Title:         "Competitor Price Monitor",
		Description:   "Automatically track competitor prices and alert when undercut",
		Apps:          []string{"n8n", "Web Scraper", "Google Sheets", "Slack"},
		Workflow:      "Scheduled trigger → Scrape competitor sites → Compare prices → Slack alert → Update sheet",
		Impact:        "Increased sales by 15%, saved 2 hours daily",
		Complexity:    ComplexityIntermediate,
		TimeToBuild:   "45 minutes",
		Category:      "e-commerce",
		ShowcaseScore: 9,
		Source:        "curated",
	},
	{
		Title:         "Smart Email-to-Task System",
		Description:   "AI analyzes emails and creates prioritized tasks automatically",
		Apps:          []string{"Gmail", "n8n", "OpenAI", "Notion", "Slack"},
		Workflow:      "Gmail trigger → OpenAI analysis → Create Notion task → Assign team member → Slack notification",
		Impact:        "0 missed requests, 70% faster response time",
		Complexity:    ComplexityAdvanced,
		TimeToBuild:   "60 minutes",
		Category:      "productivity",
		ShowcaseScore: 10,
		Source:        "curated",
	},
	{
		Title:         "Invoice Chase Bot",
		Description:   "Automatically chase overdue invoices with escalating reminders",
		Apps:          []string{"QuickBooks", "n8n", "Twilio", "SendGrid"},
		Workflow:      "Daily check → Day 1: email → Day 7: firm email → Day 14: SMS → Day 21: legal notice",
		Impact:        "Payment time reduced from 45 to 23 days, recovered $15K",
		Complexity:    ComplexityIntermediate,
		TimeToBuild:   "50 minutes",
		Category:      "finance",
		ShowcaseScore: 9,
		Source:        "curated",
	},
	{
		Title:         "Social Media Content Recycler",
		Description:   "Turn one post into content for all platforms automatically",
		Apps:          []string{"n8n", "Twitter API", "LinkedIn API", "ChatGPT", "Buffer"},
		Workflow:      "Top post trigger → ChatGPT rewrite for each platform → Schedule everywhere → Track performance",
		Impact:        "10x content output, 5 hours saved weekly",
		Complexity:    ComplexityAdvanced,
		TimeToBuild:   "75 minutes",
		Category:      "marketing",
		ShowcaseScore: 8,
		Source:        "curated",
	},
	{
		Title:         "Apartment Hunting Bot",
		Description:   "Scrapes listings and sends only the perfect matches instantly",
		Apps:          []string{"Python", "BeautifulSoup", "Telegram", "Google Sheets"},
		Workflow:      "Scrape every 15 min → Filter criteria → Check blacklist → Telegram alert → Log to sheet",
		Impact:        "Found apartment 2 weeks faster than manual search",
		Complexity:    ComplexityAdvanced,
		TimeToBuild:   "90 minutes",
		Category:      "personal",
		ShowcaseScore: 8,
		Source:        "reddit",
	},
}

// Seed adds the curated workflows when the store is empty and returns how many were added.
func (s *Store) Seed() (int, error) {
	if n := s.Count(); n > 0 {
		slog.Info("Workflow store already populated", "records", n)
		return 0, nil
	}

	for i, record := range curatedWorkflows {
		if _, err := s.Add(record); err != nil {
			return i, err
		}
	}

	slog.Info("Workflow store seeded", "records", len(curatedWorkflows))
	return len(curatedWorkflows), nil
}
