package opt

import "sync"

var (
	mu    sync.Mutex
	store = map[string]Metrics{}
)

// RecordMetrics keeps the latest metrics of a run in process memory until
// the run store has persisted them.
func RecordMetrics(runID string, m Metrics) {
	mu.Lock()
	store[runID] = m
	mu.Unlock()
}

// GetMetrics returns the recorded metrics of a run.
func GetMetrics(runID string) (Metrics, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := store[runID]
	return m, ok
}

// ForgetMetrics drops a run's recorded metrics.
func ForgetMetrics(runID string) {
	mu.Lock()
	delete(store, runID)
	mu.Unlock()
}
