package entities

import "time"

// SearchEntry is the denormalized pack row read by search and reporting
type SearchEntry struct {
	PackID            int64             `json:"appid" db:"appid"`
	ActualProductID   int64             `json:"apid" db:"apid"`
	VirtualPackID     int64             `json:"vppid" db:"vppid"`
	VirtualProductID  int64             `json:"vpid" db:"vpid"`
	MoietyID          *int64            `json:"vtmid,omitempty" db:"vtmid"`
	Name              string            `json:"name" db:"name"`
	IsBrand           bool              `json:"is_brand" db:"is_brand"`
	Price             *int64            `json:"nhs_price,omitempty" db:"nhs_price"`
	DrugTariffPrice   *int64            `json:"dt_price,omitempty" db:"dt_price"`
	CalculationMethod CalculationMethod `json:"calculation_method,omitempty" db:"calculation_method"`
	PriceStatus       PriceStatus       `json:"price_status,omitempty" db:"price_status"`
}

// RunReport is the structured result of one pricing run
type RunReport struct {
	RunID                 string                    `json:"run_id"`
	StoreLocation         string                    `json:"store_location"`
	StartedAt             time.Time                 `json:"started_at"`
	FinishedAt            time.Time                 `json:"finished_at"`
	Success               bool                      `json:"success"`
	Error                 string                    `json:"error,omitempty"`
	Evaluated             int                       `json:"evaluated"`
	CountsByMethod        map[CalculationMethod]int `json:"counts_by_method"`
	CountsByReason        map[MissingReason]int     `json:"counts_by_reason"`
	Unresolved            int                       `json:"unresolved"`
	FailedCount           int                       `json:"failed_count"`
	FailedPacks           []int64                   `json:"failed_packs,omitempty"`
	SearchEntriesInserted int64                     `json:"search_entries_inserted"`
	SearchEntriesUpdated  int64                     `json:"search_entries_updated"`
	IndexedEntries        int                       `json:"indexed_entries"`
	IndexFailures         int                       `json:"index_failures"`
}

// NewRunReport returns a report with every calculation method zero-filled
func NewRunReport(runID, location string, startedAt time.Time) *RunReport {
	report := &RunReport{
		RunID:          runID,
		StoreLocation:  location,
		StartedAt:      startedAt,
		CountsByMethod: make(map[CalculationMethod]int, len(CalculationMethods)),
		CountsByReason: make(map[MissingReason]int),
	}
	for _, m := range CalculationMethods {
		report.CountsByMethod[m] = 0
	}
	return report
}

// Calculated returns the number of packs priced by any estimation rule
func (r *RunReport) Calculated() int {
	total := 0
	for _, n := range r.CountsByMethod {
		total += n
	}
	return total
}

// Duration returns the wall time of the run
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PriceRunEvent is published after a run's search projection completes
type PriceRunEvent struct {
	RunID          string                    `json:"run_id"`
	FinishedAt     time.Time                 `json:"finished_at"`
	CountsByMethod map[CalculationMethod]int `json:"counts_by_method"`
	Unresolved     int                       `json:"unresolved"`
	FailedCount    int                       `json:"failed_count"`
}

// NewPriceRunEvent builds the event for a finished report
func NewPriceRunEvent(r *RunReport) *PriceRunEvent {
	return &PriceRunEvent{
		RunID:          r.RunID,
		FinishedAt:     r.FinishedAt,
		CountsByMethod: r.CountsByMethod,
		Unresolved:     r.Unresolved,
		FailedCount:    r.FailedCount,
	}
}

// PriceStats summarises a set of prices or confidence scores
type PriceStats struct {
	Count int     `json:"count" db:"count"`
	Avg   float64 `json:"avg" db:"avg"`
	Min   float64 `json:"min" db:"min"`
	Max   float64 `json:"max" db:"max"`
}

// MethodStats holds confidence and price statistics for one calculation method
type MethodStats struct {
	Method     CalculationMethod `json:"method"`
	Confidence PriceStats        `json:"confidence"`
	Price      PriceStats        `json:"price"`
}

// PriceAnalysis is the store-wide pricing summary shown by the report command
type PriceAnalysis struct {
	TotalPacks     int                       `json:"total_packs"`
	PricedPacks    int                       `json:"priced_packs"`
	MissingPrice   int                       `json:"missing_price"`
	Unresolved     int                       `json:"unresolved"`
	CountsByReason map[MissingReason]int     `json:"counts_by_reason"`
	CountsByMethod map[CalculationMethod]int `json:"counts_by_method"`
	MethodStats    []MethodStats             `json:"method_stats"`
}
