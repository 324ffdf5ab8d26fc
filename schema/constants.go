package schema

// Custom string types for type safety.
type (
	// Phase represents the lifecycle phase of a swarm run.
	Phase string

	// WorkerStatus represents the state of a single worker within a run.
	WorkerStatus string

	// Complexity represents the coarse effort tier of an item.
	Complexity string

	// RiskLevel represents a none/low/medium/high risk bucket.
	RiskLevel string

	// Confidence represents how a prediction was produced.
	Confidence string

	// Recommendation represents the overall advice derived from overlap analysis.
	Recommendation string

	// Affinity represents how an item relates to the current user.
	Affinity string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for run history.
	DatabaseBackend string

	// TrackerBackend represents the issue tracker implementation.
	TrackerBackend string
)

// All swarm phases, in lifecycle order.
const (
	PhaseInitializing Phase = "initializing"
	PhaseAnalyzing    Phase = "analyzing"
	PhasePlanning     Phase = "planning"
	PhasePreparing    Phase = "preparing"
	PhaseExecuting    Phase = "executing"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// All worker statuses supported.
const (
	WorkerPending   WorkerStatus = "pending"
	WorkerPlanning  WorkerStatus = "planning"
	WorkerExecuting WorkerStatus = "executing"
	WorkerCompleted WorkerStatus = "completed"
	WorkerFailed    WorkerStatus = "failed"
	WorkerTimeout   WorkerStatus = "timeout"
)

// All complexity tiers supported.
const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium" // default
	ComplexityHigh   Complexity = "high"
)

// All risk levels supported.
const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// All confidence tiers supported.
const (
	ColdStart Confidence = "cold_start"
	Learned   Confidence = "learned"
)

// All overlap recommendations supported.
const (
	RecommendProceed    Recommendation = "proceed"
	RecommendReorder    Recommendation = "reorder"
	RecommendSequential Recommendation = "sequential"
)

// All assignee affinities, ordered from most to least preferred.
const (
	AffinityMine       Affinity = "mine"
	AffinityUnassigned Affinity = "unassigned"
	AffinityOther      Affinity = "other"
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// All tracker backends supported.
const (
	GitHubTracker TrackerBackend = "github"
	FileTracker   TrackerBackend = "file"
	NoneTracker   TrackerBackend = "none" // default
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidTrackerBackends lists all valid tracker backends.
var ValidTrackerBackends = map[TrackerBackend]struct{}{
	GitHubTracker: {},
	FileTracker:   {},
	NoneTracker:   {},
}

// Terminal reports whether the worker has finished, successfully or not.
func (s WorkerStatus) Terminal() bool {
	return s == WorkerCompleted || s == WorkerFailed
}

// Value returns the numeric encoding used when comparing complexity tiers.
func (c Complexity) Value() float64 {
	switch c {
	case ComplexityLow:
		return 1
	case ComplexityHigh:
		return 10
	default:
		return 5
	}
}

// Minutes returns the default time estimate for the tier.
func (c Complexity) Minutes() int {
	switch c {
	case ComplexityLow:
		return 30
	case ComplexityHigh:
		return 480
	default:
		return 120
	}
}
