package workflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one curated workflow. JSON keys match the store file format.
type Record struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Apps          []string   `json:"apps"`
	Workflow      string     `json:"workflow"`
	Impact        string     `json:"impact"`
	Complexity    string     `json:"complexity"`
	TimeToBuild   string     `json:"time_to_build"`
	Category      string     `json:"category"`
	ShowcaseScore int        `json:"showcase_score"`
	Source        string     `json:"source"`
	AddedDate     Timestamp  `json:"added_date"`
	LastFeatured  *Timestamp `json:"last_featured"`
	FeatureCount  int        `json:"feature_count"`
}

const (
	ComplexityBeginner     = "Beginner"
	ComplexityIntermediate = "Intermediate"
	ComplexityAdvanced     = "Advanced"
)

func (r Record) clone() Record {
	r.Apps = append([]string(nil), r.Apps...)
	if r.LastFeatured != nil {
		featured := *r.LastFeatured
		r.LastFeatured = &featured
	}
	return r
}

// Timestamp reads RFC 3339 as well as zone-less ISO 8601 stamps that older
// store files contain; zone-less values are taken as local time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON reads null and "" as the zero time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}

type AppCount struct {
	App   string `json:"app"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalWorkflows     int            `json:"total_workflows"`
	Categories         map[string]int `json:"categories"`
	PopularApps        []AppCount     `json:"popular_apps"`
	AvgAppsPerWorkflow float64        `json:"avg_apps_per_workflow"`
}
