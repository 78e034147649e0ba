package domain

import "sync"

// Family status values reported after a sync.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
)

// SyncReport accumulates per-family outcomes of one synchronization
// run. It is safe for concurrent use by the family workers.
type SyncReport struct {
	mu       sync.Mutex
	Date     string            `json:"date"`
	Statuses map[string]string `json:"results"`
	Summary  map[string]any    `json:"summary"`
}

// NewSyncReport returns an empty report for the given day.
func NewSyncReport(day string) *SyncReport {
	return &SyncReport{
		Date:     day,
		Statuses: make(map[string]string, len(Families)),
		Summary:  make(map[string]any),
	}
}

// Success records that a family synced and persisted data.
func (r *SyncReport) Success(family Family) {
	r.set(family, StatusSuccess)
}

// NoData records that the upstream had nothing for the family that day.
func (r *SyncReport) NoData(family Family) {
	r.set(family, StatusNoData)
}

// Fail records a family-level error. The failure never aborts the run;
// other families continue independently.
func (r *SyncReport) Fail(family Family, err error) {
	r.set(family, "error: "+err.Error())
}

func (r *SyncReport) set(family Family, status string) {
	r.mu.Lock()
	r.Statuses[string(family)] = status
	r.mu.Unlock()
}

// Note stores a headline figure for quick inspection of the run, such
// as the day's total steps or sleep score.
func (r *SyncReport) Note(key string, value any) {
	r.mu.Lock()
	r.Summary[key] = value
	r.mu.Unlock()
}

// Status returns the recorded status for a family.
func (r *SyncReport) Status(family Family) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Statuses[string(family)]
}
