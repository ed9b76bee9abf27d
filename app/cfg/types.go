package cfg

import "time"

// Commands selectable on the command line. CommandRun is the default.
const (
	CommandRun       = "run"
	CommandServe     = "serve"
	CommandWorkflows = "workflows"
)

type Cfg struct {
	// Analysis and delivery
	GeminiAPIKey   string
	GeminiModel    string
	EmailUser      string
	EmailPass      string
	RecipientEmail string

	// Sources
	FeedURLs     []string
	FeedsDir     string
	KeywordsFile string

	// Digest run
	HoursBack      int
	MaxPosts       int
	MaxEnriched    int
	FetchDelay     time.Duration
	FetchTimeout   time.Duration
	ContentTimeout time.Duration
	WorkerCount    int
	SkipReported   bool

	// Storage
	StorePath string
	DBPath    string

	// Server
	Schedule     string
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string

	Command   string
	Workflows WorkflowArgs
}

// WorkflowArgs carries the "workflows" subcommand and its arguments.
type WorkflowArgs struct {
	Action   string
	Limit    int
	Category string
	Query    string
	ID       int
}
