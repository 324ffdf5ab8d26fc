package contract

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/hotswarm/schema"
)

// Default values for configuration.
const (
	DefaultSwarmDir             = ".hotswarm"
	DefaultMaxWorkers           = 5
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHeartbeatTimeout     = 5 * time.Minute
	DefaultBranchPrefix         = "swarm/"
	DefaultCommitPrefix         = "[swarm]"
	DefaultMinSimilarPatterns   = 3
	DefaultOverlapRiskThreshold = 3
	DefaultNumBatches           = 3
	DefaultMaxBatchSize         = 4
	DefaultMinCompatibility     = 0.6
	DefaultMaxCommits           = 500
	DefaultMinFilesChanged      = 2
	DefaultReviewStatus         = "In Review"
	DefaultPrecision            = 1
	DefaultListLimit            = 50
	MaxPredictedFiles           = 10
)

// Well-known file names under the swarm directory.
const (
	ConfigFileName           = "config.json"
	StateFileName            = "state.json"
	PendingConflictsFileName = "pending-conflicts.json"
	WorkerConfigFileName     = "worker.json"
	KnowledgeDirName         = "kb"
	LogsDirName              = "logs"
	HistoryDBFileName        = "history.db"
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// DefaultExcludes are path patterns ignored when learning from history.
var DefaultExcludes = []string{
	"Cargo.lock", "go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml", "composer.lock", "uv.lock",
	".min.js", ".min.css",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico", ".mp4", ".mov", ".webm", ".mp3", ".ogg", ".pdf", ".webp",
	".DS_Store", ".gitignore",
	"dist/", "build/", "out/", "target/", "bin/",
	DefaultSwarmDir + "/",
}

// Config holds the runtime configuration for a swarm.
// This struct remains the "final, validated" config.
type Config struct {
	RepoPath     string
	SwarmDir     string // Absolute path of the shared orchestrator directory
	WorktreeBase string // Absolute path under which worktrees are created

	MaxWorkers        int
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	BranchPrefix      string
	CommitPrefix      string

	MinSimilarPatterns   int
	OverlapRiskThreshold int

	NumBatches       int
	MaxBatchSize     int
	MinCompatibility float64

	MaxCommits      int
	MinFilesChanged int
	Excludes        []string

	TrackerBackend schema.TrackerBackend
	TrackerRepo    string // owner/name
	TrackerToken   string // Please use env var as this is plaintext
	TrackerFile    string
	User           string
	ReviewStatus   string

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from the --repo flag, so no tag
	RepoPathStr string

	// --- Run settings ---
	SwarmDir          string `mapstructure:"swarm-dir"`
	WorktreeBase      string `mapstructure:"worktree-base"`
	MaxWorkers        int    `mapstructure:"max-workers"`
	HeartbeatInterval string `mapstructure:"heartbeat-interval"`
	HeartbeatTimeout  string `mapstructure:"heartbeat-timeout"`
	BranchPrefix      string `mapstructure:"branch-prefix"`
	CommitPrefix      string `mapstructure:"commit-prefix"`

	// --- Learning thresholds ---
	MinSimilarPatterns   int `mapstructure:"min-similar-patterns"`
	OverlapRiskThreshold int `mapstructure:"overlap-risk-threshold"`

	// --- Fields from suggestCmd.Flags() ---
	Batches          int     `mapstructure:"batches"`
	BatchSize        int     `mapstructure:"batch-size"`
	MinCompatibility float64 `mapstructure:"min-compatibility"`

	// --- Fields from kbBootstrapCmd.Flags() ---
	MaxCommits      int    `mapstructure:"max-commits"`
	MinFilesChanged int    `mapstructure:"min-files-changed"`
	Exclude         string `mapstructure:"exclude"`

	// --- Tracker ---
	Tracker      string `mapstructure:"tracker"`
	TrackerRepo  string `mapstructure:"tracker-repo"`
	TrackerToken string `mapstructure:"tracker-token"`
	TrackerFile  string `mapstructure:"tracker-file"`
	User         string `mapstructure:"user"`
	ReviewStatus string `mapstructure:"review-status"`

	// --- History ---
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Excludes != nil {
		clone.Excludes = make([]string, len(c.Excludes))
		copy(clone.Excludes, c.Excludes)
	}
	return &clone
}

// --- Derived paths ---

// ConfigPath returns the location of config.json.
func (c *Config) ConfigPath() string { return filepath.Join(c.SwarmDir, ConfigFileName) }

// StatePath returns the location of the shared swarm state.
func (c *Config) StatePath() string { return filepath.Join(c.SwarmDir, StateFileName) }

// PendingConflictsPath returns the location of the unresolved conflict report.
func (c *Config) PendingConflictsPath() string {
	return filepath.Join(c.SwarmDir, PendingConflictsFileName)
}

// KnowledgeDir returns the directory holding the knowledge base logs.
func (c *Config) KnowledgeDir() string { return filepath.Join(c.SwarmDir, KnowledgeDirName) }

// LogsDir returns the directory holding per-worker logs.
func (c *Config) LogsDir() string { return filepath.Join(c.SwarmDir, LogsDirName) }

// WorkerLogPath returns the log file of the given worker.
func WorkerLogPath(swarmDir string, workerID int) string {
	return filepath.Join(swarmDir, LogsDirName, fmt.Sprintf("worker-%d.log", workerID))
}

// WorkerConfigPath returns the location of worker.json inside a worktree.
func WorkerConfigPath(worktree string) string {
	return filepath.Join(worktree, DefaultSwarmDir, WorkerConfigFileName)
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processRunSettings(cfg, input); err != nil {
		return err
	}
	if err := validateTrackerConfig(cfg, input); err != nil {
		return err
	}
	if err := resolveRepoPaths(ctx, cfg, client, input); err != nil {
		return err
	}
	return validateHistoryConfig(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output and batching fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}

	// --- 2. Batching Validation ---
	if input.Batches <= 0 {
		return fmt.Errorf("batches must be greater than 0 (received %d)", input.Batches)
	}
	cfg.NumBatches = input.Batches
	if input.BatchSize < 2 {
		return fmt.Errorf("batch-size must be at least 2 (received %d)", input.BatchSize)
	}
	cfg.MaxBatchSize = input.BatchSize
	if input.MinCompatibility < 0 || input.MinCompatibility > 1 {
		return fmt.Errorf("min-compatibility must be between 0 and 1 (received %v)", input.MinCompatibility)
	}
	cfg.MinCompatibility = input.MinCompatibility

	// --- 3. Bootstrap Validation ---
	if input.MaxCommits <= 0 {
		return fmt.Errorf("max-commits must be greater than 0 (received %d)", input.MaxCommits)
	}
	cfg.MaxCommits = input.MaxCommits
	if input.MinFilesChanged < 1 {
		return fmt.Errorf("min-files-changed must be at least 1 (received %d)", input.MinFilesChanged)
	}
	cfg.MinFilesChanged = input.MinFilesChanged

	// --- 4. Excludes Processing ---
	cfg.Excludes = append([]string{}, DefaultExcludes...)
	if input.Exclude != "" {
		for p := range strings.SplitSeq(input.Exclude, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.Excludes = append(cfg.Excludes, trimmed)
			}
		}
	}
	return nil
}

// processRunSettings handles worker limits, heartbeat timing and git naming.
func processRunSettings(cfg *Config, input *ConfigRawInput) error {
	if input.MaxWorkers <= 0 {
		return fmt.Errorf("max-workers must be greater than 0 (received %d)", input.MaxWorkers)
	}
	cfg.MaxWorkers = input.MaxWorkers

	interval, err := parseDurationOr(input.HeartbeatInterval, DefaultHeartbeatInterval)
	if err != nil {
		return fmt.Errorf("invalid heartbeat-interval: %w", err)
	}
	timeout, err := parseDurationOr(input.HeartbeatTimeout, DefaultHeartbeatTimeout)
	if err != nil {
		return fmt.Errorf("invalid heartbeat-timeout: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("heartbeat-interval must be positive (received %s)", interval)
	}
	if timeout <= interval {
		return fmt.Errorf("heartbeat-timeout (%s) must exceed heartbeat-interval (%s)", timeout, interval)
	}
	cfg.HeartbeatInterval = interval
	cfg.HeartbeatTimeout = timeout

	cfg.BranchPrefix = input.BranchPrefix
	if cfg.BranchPrefix == "" {
		cfg.BranchPrefix = DefaultBranchPrefix
	}
	if err := ValidateIdentifier("branch-prefix", strings.TrimSuffix(cfg.BranchPrefix, "/")); err != nil {
		return err
	}
	cfg.CommitPrefix = strings.TrimSpace(input.CommitPrefix)

	if input.MinSimilarPatterns < 1 {
		return fmt.Errorf("min-similar-patterns must be at least 1 (received %d)", input.MinSimilarPatterns)
	}
	cfg.MinSimilarPatterns = input.MinSimilarPatterns
	if input.OverlapRiskThreshold < 1 {
		return fmt.Errorf("overlap-risk-threshold must be at least 1 (received %d)", input.OverlapRiskThreshold)
	}
	cfg.OverlapRiskThreshold = input.OverlapRiskThreshold
	return nil
}

// validateTrackerConfig validates the issue tracker settings.
func validateTrackerConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.TrackerBackend = schema.TrackerBackend(strings.ToLower(input.Tracker))
	if cfg.TrackerBackend == "" {
		cfg.TrackerBackend = schema.NoneTracker
	}
	if _, ok := schema.ValidTrackerBackends[cfg.TrackerBackend]; !ok {
		return fmt.Errorf("invalid tracker '%s'. must be github, file, none", input.Tracker)
	}
	cfg.TrackerRepo = strings.TrimSpace(input.TrackerRepo)
	cfg.TrackerToken = input.TrackerToken
	cfg.TrackerFile = input.TrackerFile
	cfg.User = input.User
	cfg.ReviewStatus = input.ReviewStatus
	if cfg.ReviewStatus == "" {
		cfg.ReviewStatus = DefaultReviewStatus
	}

	switch cfg.TrackerBackend {
	case schema.GitHubTracker:
		owner, name, ok := strings.Cut(cfg.TrackerRepo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("tracker-repo must be in owner/name form when using the github tracker (received %q)", cfg.TrackerRepo)
		}
	case schema.FileTracker:
		if cfg.TrackerFile == "" {
			return fmt.Errorf("tracker-file is required when using the file tracker")
		}
	}
	return nil
}

// resolveRepoPaths resolves the Git root and the swarm and worktree directories.
func resolveRepoPaths(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	repoPath := input.RepoPathStr
	if repoPath == "" {
		repoPath = "."
	}
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for %q: %w", repoPath, err)
	}
	gitRoot, err := client.GetRepoRoot(ctx, absPath)
	if err != nil {
		return fmt.Errorf("not a git repository (or any of the parent directories): %w", err)
	}
	cfg.RepoPath = gitRoot

	swarmDir := input.SwarmDir
	if swarmDir == "" {
		swarmDir = DefaultSwarmDir
	}
	if !filepath.IsAbs(swarmDir) {
		swarmDir = filepath.Join(gitRoot, swarmDir)
	}
	cfg.SwarmDir = filepath.Clean(swarmDir)

	worktreeBase := input.WorktreeBase
	if worktreeBase == "" {
		worktreeBase = filepath.Join(filepath.Dir(gitRoot), filepath.Base(gitRoot)+"-worktrees")
	} else if !filepath.IsAbs(worktreeBase) {
		worktreeBase = filepath.Join(gitRoot, worktreeBase)
	}
	cfg.WorktreeBase = filepath.Clean(worktreeBase)

	// The swarm directory sits in the repo, so it never counts as uncommitted work
	if rel, err := filepath.Rel(gitRoot, cfg.SwarmDir); err == nil && !strings.HasPrefix(rel, "..") {
		cfg.Excludes = append(cfg.Excludes, filepath.ToSlash(rel)+"/")
	}
	return nil
}

// validateHistoryConfig validates the run history backend.
func validateHistoryConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect == "" {
		cfg.HistoryDBConnect = filepath.Join(cfg.SwarmDir, HistoryDBFileName)
	}
	return ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

// parseDurationOr parses s as a Go duration, falling back to def when s is empty.
// A bare integer is read as seconds.
func parseDurationOr(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("expected a duration like 30s or 5m (received %q)", s)
}
