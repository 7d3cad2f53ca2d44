package model

import "time"

// Run statuses
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunRequest submits an instance for solving. Exactly one of Instance and
// InstanceText must be set; InstanceText uses the plain text instance format.
type RunRequest struct {
	Name         string           `json:"name,omitempty"`
	Instance     *InstanceIn      `json:"instance,omitempty"`
	InstanceText string           `json:"instanceText,omitempty"`
	Search       *SearchOverrides `json:"search,omitempty"`
	Callback     *Callback        `json:"callback,omitempty"`
}

// InstanceIn describes a problem either by coordinates or by an explicit
// distance matrix. Index 0 is the depot.
type InstanceIn struct {
	Vehicles int         `json:"vehicles"`
	Capacity int         `json:"capacity"`
	Demand   []int       `json:"demand"`
	X        []float64   `json:"x,omitempty"`
	Y        []float64   `json:"y,omitempty"`
	Distance [][]float64 `json:"distance,omitempty"`
}

// SearchOverrides adjusts the server's default search settings for one run.
type SearchOverrides struct {
	TimeoutMs            int      `json:"timeoutMs,omitempty"`
	Workers              int      `json:"workers,omitempty"`
	Seed                 int64    `json:"seed,omitempty"`
	Operators            []string `json:"operators,omitempty"`
	DropFailedCandidates *bool    `json:"dropFailedCandidates,omitempty"`
}

// Callback receives a signed run.completed or run.failed event.
type Callback struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

type Run struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Status      string      `json:"status"`
	Customers   int         `json:"customers"`
	Vehicles    int         `json:"vehicles"`
	Capacity    int         `json:"capacity"`
	CreatedAt   time.Time   `json:"createdAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	FinishedAt  *time.Time  `json:"finishedAt,omitempty"`
	Distance    float64     `json:"distance,omitempty"`
	Encoding    string      `json:"encoding,omitempty"`
	Routes      [][]int     `json:"routes,omitempty"`
	Metrics     *RunMetrics `json:"metrics,omitempty"`
	Error       string      `json:"error,omitempty"`
	// SubmittedBy is the token subject when authentication is enabled.
	SubmittedBy string      `json:"submittedBy,omitempty"`
	Callback    *Callback   `json:"-"`
}

type RunMetrics struct {
	Iterations      int                 `json:"iterations"`
	Improvements    int                 `json:"improvements"`
	AcceptedWorse   int                 `json:"acceptedWorse"`
	Restarts        int                 `json:"restarts"`
	Polishes        int                 `json:"polishes"`
	PolishGains     int                 `json:"polishGains"`
	StagnantBatches int                 `json:"stagnantBatches"`
	Candidates      int                 `json:"candidates"`
	InitialDistance float64             `json:"initialDistance"`
	BestDistance    float64             `json:"bestDistance"`
	FinalTolerance  float64             `json:"finalTolerance"`
	FineMode        bool                `json:"fineMode"`
	ElapsedMs       int64               `json:"elapsedMs"`
	OperatorWins    map[string]int      `json:"operatorWins,omitempty"`
	Snapshots       []ToleranceSnapshot `json:"snapshots,omitempty"`
}

type ToleranceSnapshot struct {
	Iteration int     `json:"iteration"`
	ElapsedMs int64   `json:"elapsedMs"`
	Tolerance float64 `json:"tolerance"`
	Current   float64 `json:"current"`
	Best      float64 `json:"best"`
}

// RunEvent is streamed to websocket subscribers while a run progresses.
type RunEvent struct {
	Type      string  `json:"type"`
	RunID     string  `json:"runId"`
	Iteration int     `json:"iteration"`
	ElapsedMs int64   `json:"elapsedMs"`
	State     string  `json:"state,omitempty"`
	Distance  float64 `json:"distance"`
	Tolerance float64 `json:"tolerance"`
}

// SolverConfig is the JSON view of the server's default search settings.
type SolverConfig struct {
	Timeout                   string   `json:"timeout"`
	Workers                   int      `json:"workers"`
	Seed                      int64    `json:"seed"`
	Operators                 []string `json:"operators"`
	AvailableOperators        []string `json:"availableOperators"`
	FineSamples               int      `json:"fineSamples"`
	FineToleranceThreshold    float64  `json:"fineToleranceThreshold"`
	StagnationTimeout         string   `json:"stagnationTimeout"`
	RestartPeriod             string   `json:"restartPeriod"`
	MinTolerance              float64  `json:"minTolerance"`
	MaxInitialTolerance       float64  `json:"maxInitialTolerance"`
	PolishAfterRestarts       int      `json:"polishAfterRestarts"`
	PolishAfterRestartsRepeat int      `json:"polishAfterRestartsRepeat"`
	ExchangeRetries           int      `json:"exchangeRetries"`
	CyclicPeriod              int      `json:"cyclicPeriod"`
	DropFailedCandidates      bool     `json:"dropFailedCandidates"`
}
