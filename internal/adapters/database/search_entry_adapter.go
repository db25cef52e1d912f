package database

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

const searchInsertBatchSize = 500

var parenthesised = regexp.MustCompile(`\([^)]*\)`)

// SearchEntryAdapter implements SearchEntryRepository over unified_search
type SearchEntryAdapter struct {
	exec executor
	db   goqu.DialectWrapper
	now  func() time.Time
}

// NewSearchEntryAdapter creates a new search entry adapter
func NewSearchEntryAdapter(exec executor, db goqu.DialectWrapper) repositories.SearchEntryRepository {
	return &SearchEntryAdapter{
		exec: exec,
		db:   db,
		now:  time.Now,
	}
}

type missingEntryRow struct {
	entities.SearchEntry
	VirtualPackName string `db:"vmpp_name"`
}

// InsertMissing adds an entry for every pack that has none. Price fields are
// left empty for RefreshPrices to fill.
func (a *SearchEntryAdapter) InsertMissing(ctx context.Context) (int64, error) {
	query, args, err := a.db.From(goqu.T("ampp").As("ap")).
		Join(goqu.T("amp").As("a"), goqu.On(goqu.I("a.apid").Eq(goqu.I("ap.apid")))).
		Join(goqu.T("vmpp").As("vp"), goqu.On(goqu.I("vp.vppid").Eq(goqu.I("ap.vppid")))).
		Join(goqu.T("vmp").As("v"), goqu.On(goqu.I("v.vpid").Eq(goqu.I("a.vpid")))).
		LeftJoin(goqu.T("unified_search").As("us"), goqu.On(goqu.I("us.appid").Eq(goqu.I("ap.appid")))).
		Select(
			goqu.I("ap.appid"),
			goqu.I("ap.apid"),
			goqu.I("ap.vppid"),
			goqu.I("a.vpid"),
			goqu.I("v.vtmid"),
			goqu.I("ap.name"),
			goqu.I("vp.name").As("vmpp_name"),
		).
		Where(goqu.I("us.appid").IsNull()).
		Order(goqu.I("ap.appid").Asc()).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var missing []missingEntryRow
	if err := sqlx.SelectContext(ctx, a.exec, &missing, query, args...); err != nil {
		return 0, apperrors.NewInternalError("failed to find packs without search entries", err)
	}

	now := a.now().UTC()
	var inserted int64
	for start := 0; start < len(missing); start += searchInsertBatchSize {
		end := start + searchInsertBatchSize
		if end > len(missing) {
			end = len(missing)
		}

		rows := make([]interface{}, 0, end-start)
		for _, m := range missing[start:end] {
			rows = append(rows, goqu.Record{
				"appid":        m.PackID,
				"apid":         m.ActualProductID,
				"vppid":        m.VirtualPackID,
				"vpid":         m.VirtualProductID,
				"vtmid":        nullable(m.MoietyID),
				"name":         m.Name,
				"is_brand":     IsBrandName(m.Name, m.VirtualPackName),
				"last_updated": now,
			})
		}

		query, args, err := a.db.Insert("unified_search").Rows(rows...).ToSQL()
		if err != nil {
			return inserted, apperrors.NewInternalError("failed to build insert query", err)
		}
		result, err := a.exec.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, apperrors.NewInternalError("failed to insert search entries", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, apperrors.NewInternalError("failed to get rows affected", err)
		}
		inserted += n
	}

	return inserted, nil
}

// RefreshPrices re-derives every entry's price fields from the price records
// and the drug tariff in a single statement. Entries whose pack has no
// positive price get NULL.
func (a *SearchEntryAdapter) RefreshPrices(ctx context.Context) (int64, error) {
	priceInfo := func(column string) *goqu.SelectDataset {
		return a.db.From(goqu.T("ampp_price_info").As("p")).
			Select(goqu.I("p." + column)).
			Where(goqu.I("p.appid").Eq(goqu.I("unified_search.appid")))
	}

	query, args, err := a.db.Update("unified_search").
		Set(goqu.Record{
			"nhs_price":          priceInfo("price").Where(goqu.I("p.price").Gt(0)),
			"calculation_method": priceInfo("calculation_method"),
			"price_status":       priceInfo("price_status"),
			"dt_price": a.db.From(goqu.T("vmpp_dt_info").As("d")).
				Select(goqu.MIN(goqu.I("d.price"))).
				Where(goqu.I("d.vppid").Eq(goqu.I("unified_search.vppid"))),
			"last_updated": a.now().UTC(),
		}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to refresh search prices", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return n, nil
}

// List pages through entries by pack id
func (a *SearchEntryAdapter) List(ctx context.Context, afterID int64, limit int) ([]*entities.SearchEntry, error) {
	if limit <= 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}

	query, args, err := a.db.From("unified_search").
		Select(
			"appid", "apid", "vppid", "vpid", "vtmid", "name", "is_brand", "nhs_price", "dt_price",
			goqu.COALESCE(goqu.C("calculation_method"), "").As("calculation_method"),
			goqu.COALESCE(goqu.C("price_status"), "").As("price_status"),
		).
		Where(goqu.C("appid").Gt(afterID)).
		Order(goqu.C("appid").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var entries []*entities.SearchEntry
	if err := sqlx.SelectContext(ctx, a.exec, &entries, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list search entries", err)
	}
	return entries, nil
}

// IsBrandName reports whether a pack name differs from its virtual pack name
// once supplier text in parentheses is removed
func IsBrandName(packName, virtualPackName string) bool {
	return normaliseName(parenthesised.ReplaceAllString(packName, " ")) != normaliseName(virtualPackName)
}

func normaliseName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
