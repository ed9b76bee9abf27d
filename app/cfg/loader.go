package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Analysis and delivery
	GeminiAPIKey   string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiModel    string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash" description:"Gemini model name"`
	EmailUser      string `long:"email-user" env:"EMAIL_USER" description:"Mail account user"`
	EmailPass      string `long:"email-pass" env:"EMAIL_PASS" description:"Mail account password"`
	RecipientEmail string `long:"recipient-email" env:"RECIPIENT_EMAIL" description:"Report recipient address"`

	// Sources
	FeedURLs     []string `long:"feed-url" env:"FEED_URLS" env-delim:"," description:"Feed URL to collect (repeatable)"`
	FeedsDir     string   `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed source files"`
	KeywordsFile string   `long:"keywords-file" env:"KEYWORDS_FILE" description:"YAML file with automation and showcase keyword tables"`

	// Digest run
	HoursBack      int           `long:"hours-back" env:"HOURS_BACK" default:"24" description:"Collect posts published within this many hours"`
	MaxPosts       int           `long:"max-posts" env:"MAX_POSTS" default:"40" description:"Maximum posts included in the report"`
	MaxEnriched    int           `long:"max-enriched" env:"MAX_ENRICHED" default:"5" description:"Number of top posts to fetch full content for"`
	FetchDelay     time.Duration `long:"fetch-delay" env:"FETCH_DELAY" default:"1s" description:"Minimum delay between feed fetches"`
	FetchTimeout   time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Feed fetch timeout"`
	ContentTimeout time.Duration `long:"content-timeout" env:"CONTENT_TIMEOUT" default:"10s" description:"Article fetch timeout"`
	WorkerCount    int           `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of parallel feed fetches"`
	SkipReported   bool          `long:"skip-reported" env:"SKIP_REPORTED" description:"Leave out posts included in earlier reports"`

	// Storage
	StorePath string `long:"store-path" env:"STORE_PATH" default:"./workflows.json" description:"Workflow store JSON file"`
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/digest.db" description:"SQLite ledger file"`

	// Server
	Schedule     string `long:"schedule" env:"SCHEDULE" default:"0 9 * * *" description:"Cron schedule for digest runs in serve mode"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://digest.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Workflow Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" description:"Timezone for schedules and timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Run       struct{}     `command:"run" description:"Run one digest and print the report (default)"`
	Serve     struct{}     `command:"serve" description:"Run digests on a schedule and serve the HTTP API"`
	Workflows workflowsCmd `command:"workflows" subcommands-optional:"yes" description:"Inspect and manage the workflow store"`
}

type workflowsCmd struct {
	Seed       struct{}      `command:"seed" description:"Insert the curated workflows into an empty store"`
	List       struct{}      `command:"list" description:"List all workflows"`
	Best       limitCategory `command:"best" description:"Show the highest scoring workflows"`
	Unfeatured limitOnly     `command:"unfeatured" description:"Show workflows not featured recently"`
	Search     searchArgs    `command:"search" description:"Search workflows by title, description or app"`
	Stats      struct{}      `command:"stats" description:"Show store statistics"`
	Feature    featureArgs   `command:"feature" description:"Mark a workflow as featured now"`
}

type limitCategory struct {
	Limit    int    `long:"limit" default:"5" description:"Maximum workflows to show"`
	Category string `long:"category" description:"Only show this category"`
}

type limitOnly struct {
	Limit int `long:"limit" default:"3" description:"Maximum workflows to show"`
}

type searchArgs struct {
	Args struct {
		Query string `positional-arg-name:"query"`
	} `positional-args:"yes" required:"yes"`
}

type featureArgs struct {
	Args struct {
		ID int `positional-arg-name:"id"`
	} `positional-args:"yes" required:"yes"`
}

var globalCfg *Cfg

// Load parses os.Args and the environment. It returns nil, nil when help was shown.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		GeminiAPIKey:   raw.GeminiAPIKey,
		GeminiModel:    raw.GeminiModel,
		EmailUser:      raw.EmailUser,
		EmailPass:      raw.EmailPass,
		RecipientEmail: raw.RecipientEmail,
		FeedURLs:       raw.FeedURLs,
		FeedsDir:       raw.FeedsDir,
		KeywordsFile:   raw.KeywordsFile,
		HoursBack:      raw.HoursBack,
		MaxPosts:       raw.MaxPosts,
		MaxEnriched:    raw.MaxEnriched,
		FetchDelay:     raw.FetchDelay,
		FetchTimeout:   raw.FetchTimeout,
		ContentTimeout: raw.ContentTimeout,
		WorkerCount:    raw.WorkerCount,
		SkipReported:   raw.SkipReported,
		StorePath:      raw.StorePath,
		DBPath:         raw.DBPath,
		Schedule:       raw.Schedule,
		Port:           raw.Port,
		BaseUrl:        raw.BaseUrl,
		APIAccessKey:   raw.APIAccessKey,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
		Command:        CommandRun,
	}

	if active := parser.Active; active != nil {
		cfg.Command = active.Name
		if active.Name == CommandWorkflows {
			cfg.Workflows = workflowArgs(active, &raw.Workflows)
		}
	}

	if cfg.HoursBack <= 0 {
		return nil, fmt.Errorf("hours-back must be positive, got %d", cfg.HoursBack)
	}
	if cfg.MaxPosts <= 0 {
		return nil, fmt.Errorf("max-posts must be positive, got %d", cfg.MaxPosts)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	globalCfg = cfg

	return cfg, nil
}

func workflowArgs(cmd *flags.Command, raw *workflowsCmd) WorkflowArgs {
	args := WorkflowArgs{Action: "list"}
	if cmd.Active == nil {
		return args
	}

	args.Action = cmd.Active.Name
	switch args.Action {
	case "best":
		args.Limit = raw.Best.Limit
		args.Category = raw.Best.Category
	case "unfeatured":
		args.Limit = raw.Unfeatured.Limit
	case "search":
		args.Query = raw.Search.Args.Query
	case "feature":
		args.ID = raw.Feature.Args.ID
	}
	return args
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetupLogging installs the default slog handler on stderr.
func SetupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			slog.Debug("Timezone configured", "timezone", timezone)
		}
	}
	return nil
}
