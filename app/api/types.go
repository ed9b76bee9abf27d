package api

import (
	"github.com/lysyi3m/workflow-digest/app/database"
	"github.com/lysyi3m/workflow-digest/app/feed"
	"github.com/lysyi3m/workflow-digest/app/tasks"
	"github.com/lysyi3m/workflow-digest/app/workflow"
)

type GeneratorInterface interface {
	Run(reports []database.Report) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type WorkflowStore interface {
	Add(record workflow.Record) (workflow.Record, error)
	Count() int
	BestWorkflows(limit int, category string) []workflow.Record
	Unfeatured(limit int) []workflow.Record
	Search(query string) []workflow.Record
	Stats() workflow.Stats
	MarkFeatured(id int) (bool, error)
}

var _ WorkflowStore = (*workflow.Store)(nil)

type SourceCounter interface {
	GetConfigCount() int
}

type Handler struct {
	store      WorkflowStore
	reportRepo database.ReportRepository
	itemRepo   database.ItemRepository
	generator  GeneratorInterface
	sources    SourceCounter
	scheduler  tasks.TaskSchedulerInterface
	newDigest  tasks.TaskFactory
}

// AddWorkflowRequest is the body of POST /api/workflows.
type AddWorkflowRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	Apps          []string `json:"apps"`
	Workflow      string   `json:"workflow"`
	Impact        string   `json:"impact"`
	Complexity    string   `json:"complexity"`
	TimeToBuild   string   `json:"time_to_build"`
	Category      string   `json:"category"`
	ShowcaseScore int      `json:"showcase_score"`
	Source        string   `json:"source"`
}

func (r AddWorkflowRequest) record() workflow.Record {
	return workflow.Record{
		Title:         r.Title,
		Description:   r.Description,
		Apps:          r.Apps,
		Workflow:      r.Workflow,
		Impact:        r.Impact,
		Complexity:    r.Complexity,
		TimeToBuild:   r.TimeToBuild,
		Category:      r.Category,
		ShowcaseScore: r.ShowcaseScore,
		Source:        r.Source,
	}
}
