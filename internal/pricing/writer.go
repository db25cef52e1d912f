package pricing

import (
	"context"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
)

const priceDateLayout = "2006-01-02"

// Writer persists decisions one pack at a time through a single repository,
// which callers bind to the run's transaction
type Writer struct {
	records repositories.PriceRecordRepository
}

// NewWriter creates a writer over records
func NewWriter(records repositories.PriceRecordRepository) *Writer {
	return &Writer{records: records}
}

// WriteSummary counts the records a writer touched
type WriteSummary struct {
	Inserted int
	Updated  int
}

// Apply writes every terminal decision. Prior records are taken from s so the
// previous price reflects the run-start state. Any store error aborts the
// remaining writes and is returned for the caller to roll back.
func (w *Writer) Apply(ctx context.Context, s *Snapshot, decisions []Decision, runAt time.Time) (WriteSummary, error) {
	var summary WriteSummary
	for i := range decisions {
		d := &decisions[i]
		if !d.State.Terminal() {
			continue
		}

		existing := s.PriceRecord(d.PackID)
		record := BuildRecord(d, existing, runAt)
		if err := record.Validate(); err != nil {
			return summary, apperrors.NewInternalError("refusing to write invalid price record", err)
		}

		if existing == nil {
			if err := w.records.Insert(ctx, record); err != nil {
				return summary, err
			}
			summary.Inserted++
			continue
		}
		if err := w.records.Update(ctx, record); err != nil {
			return summary, err
		}
		summary.Updated++
	}
	return summary, nil
}

// BuildRecord derives the price record a decision leaves behind. existing may be nil.
func BuildRecord(d *Decision, existing *entities.PriceRecord, runAt time.Time) *entities.PriceRecord {
	at := runAt.UTC()
	record := &entities.PriceRecord{
		PackID:          d.PackID,
		Method:          entities.MethodNone,
		CalculationDate: &at,
	}
	if existing != nil {
		record.PreviousPrice = existing.PreviousPrice
		if existing.Price != nil {
			prev := *existing.Price
			record.PreviousPrice = &prev
		}
		record.PriceDate = existing.PriceDate
	}

	switch d.State {
	case StateCalculated:
		price := d.Estimate.Price
		confidence := d.Estimate.Confidence
		date := at.Format(priceDateLayout)
		record.Price = &price
		record.Status = entities.PriceStatusCalculated
		record.Method = d.Estimate.Method
		record.ConfidenceScore = &confidence
		record.PriceDate = &date
		if existing == nil {
			record.PriceBasisCode = basis(entities.PriceBasisCalculated)
		}
	case StateIntentionallyMissing:
		record.Status = entities.PriceStatusIntentionallyMissing
		record.MissingReason = d.Reason
		if existing == nil {
			record.PriceBasisCode = basis(entities.PriceBasisMissing)
		}
	default:
		record.Status = entities.PriceStatusUnknown
		record.MissingReason = entities.ReasonUnknown
		if existing == nil {
			record.PriceBasisCode = basis(entities.PriceBasisMissing)
		}
	}
	return record
}

func basis(code int64) *int64 {
	return &code
}
