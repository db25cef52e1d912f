package database

import (
	"context"
	"fmt"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/doug-martin/goqu/v9"
)

// PriceRecordAdapter implements PriceRecordRepository
type PriceRecordAdapter struct {
	exec executor
	db   goqu.DialectWrapper
}

// NewPriceRecordAdapter creates a new price record adapter
func NewPriceRecordAdapter(exec executor, db goqu.DialectWrapper) repositories.PriceRecordRepository {
	return &PriceRecordAdapter{
		exec: exec,
		db:   db,
	}
}

// Insert creates a price record
func (a *PriceRecordAdapter) Insert(ctx context.Context, record *entities.PriceRecord) error {
	row := derivedFields(record)
	row["appid"] = record.PackID
	row["price_prev"] = nullable(record.PreviousPrice)
	row["price_basis_code"] = nullable(record.PriceBasisCode)
	row["price_date"] = nullable(record.PriceDate)

	query, args, err := a.db.Insert("ampp_price_info").Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.exec.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to insert price record for pack %d", record.PackID), err)
	}
	return nil
}

// Update overwrites the derived fields of a price record. The basis code is
// left as stored; the price date only moves when a new price is calculated.
func (a *PriceRecordAdapter) Update(ctx context.Context, record *entities.PriceRecord) error {
	row := derivedFields(record)
	row["price_prev"] = nullable(record.PreviousPrice)
	if record.Status == entities.PriceStatusCalculated {
		row["price_date"] = nullable(record.PriceDate)
	}

	query, args, err := a.db.Update("ampp_price_info").
		Set(row).
		Where(goqu.Ex{"appid": record.PackID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to update price record for pack %d", record.PackID), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("price record for pack %d not found", record.PackID))
	}
	return nil
}

func derivedFields(record *entities.PriceRecord) goqu.Record {
	return goqu.Record{
		"price":              nullable(record.Price),
		"price_status":       nullString(string(record.Status)),
		"calculation_method": nullString(string(record.Method)),
		"missing_reason":     nullString(string(record.MissingReason)),
		"confidence_score":   nullable(record.ConfidenceScore),
		"calculation_date":   nullable(record.CalculationDate),
	}
}
