package database

import (
	"context"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// AnalysisAdapter implements AnalysisRepository
type AnalysisAdapter struct {
	exec executor
	db   goqu.DialectWrapper
}

// NewAnalysisAdapter creates a new analysis adapter
func NewAnalysisAdapter(exec executor, db goqu.DialectWrapper) repositories.AnalysisRepository {
	return &AnalysisAdapter{
		exec: exec,
		db:   db,
	}
}

type groupCount struct {
	Key   string `db:"group_key"`
	Count int    `db:"count"`
}

type methodStatsRow struct {
	Method        string  `db:"method"`
	Count         int     `db:"count"`
	ConfidenceAvg float64 `db:"confidence_avg"`
	ConfidenceMin float64 `db:"confidence_min"`
	ConfidenceMax float64 `db:"confidence_max"`
	PriceAvg      float64 `db:"price_avg"`
	PriceMin      float64 `db:"price_min"`
	PriceMax      float64 `db:"price_max"`
}

// Analyse summarises price coverage across all packs
func (a *AnalysisAdapter) Analyse(ctx context.Context) (*entities.PriceAnalysis, error) {
	analysis := &entities.PriceAnalysis{
		CountsByReason: make(map[entities.MissingReason]int),
		CountsByMethod: make(map[entities.CalculationMethod]int, len(entities.CalculationMethods)),
	}
	for _, m := range entities.CalculationMethods {
		analysis.CountsByMethod[m] = 0
	}

	var err error
	if analysis.TotalPacks, err = a.count(ctx, a.db.From("ampp")); err != nil {
		return nil, err
	}
	if analysis.PricedPacks, err = a.count(ctx, a.db.From("ampp_price_info").
		Where(goqu.C("price").Gt(0))); err != nil {
		return nil, err
	}
	analysis.MissingPrice = analysis.TotalPacks - analysis.PricedPacks
	if analysis.Unresolved, err = a.count(ctx, a.db.From("ampp_price_info").
		Where(goqu.C("price_status").Eq(string(entities.PriceStatusUnknown)))); err != nil {
		return nil, err
	}

	reasons, err := a.groupCounts(ctx, "missing_reason", entities.PriceStatusIntentionallyMissing)
	if err != nil {
		return nil, err
	}
	for _, g := range reasons {
		analysis.CountsByReason[entities.MissingReason(g.Key)] = g.Count
	}

	methods, err := a.groupCounts(ctx, "calculation_method", entities.PriceStatusCalculated)
	if err != nil {
		return nil, err
	}
	for _, g := range methods {
		analysis.CountsByMethod[entities.CalculationMethod(g.Key)] = g.Count
	}

	query, args, err := a.db.From("ampp_price_info").
		Select(
			goqu.C("calculation_method").As("method"),
			goqu.COUNT(goqu.Star()).As("count"),
			goqu.AVG("confidence_score").As("confidence_avg"),
			goqu.MIN("confidence_score").As("confidence_min"),
			goqu.MAX("confidence_score").As("confidence_max"),
			goqu.AVG("price").As("price_avg"),
			goqu.MIN("price").As("price_min"),
			goqu.MAX("price").As("price_max"),
		).
		Where(
			goqu.C("price_status").Eq(string(entities.PriceStatusCalculated)),
			goqu.C("calculation_method").IsNotNull(),
		).
		GroupBy("calculation_method").
		Order(goqu.C("calculation_method").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []methodStatsRow
	if err := sqlx.SelectContext(ctx, a.exec, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to load method statistics", err)
	}
	for _, r := range rows {
		analysis.MethodStats = append(analysis.MethodStats, entities.MethodStats{
			Method:     entities.CalculationMethod(r.Method),
			Confidence: entities.PriceStats{Count: r.Count, Avg: r.ConfidenceAvg, Min: r.ConfidenceMin, Max: r.ConfidenceMax},
			Price:      entities.PriceStats{Count: r.Count, Avg: r.PriceAvg, Min: r.PriceMin, Max: r.PriceMax},
		})
	}

	return analysis, nil
}

func (a *AnalysisAdapter) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	query, args, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var n int
	if err := sqlx.GetContext(ctx, a.exec, &n, query, args...); err != nil {
		return 0, apperrors.NewInternalError("failed to count packs", err)
	}
	return n, nil
}

func (a *AnalysisAdapter) groupCounts(ctx context.Context, column string, status entities.PriceStatus) ([]groupCount, error) {
	query, args, err := a.db.From("ampp_price_info").
		Select(goqu.C(column).As("group_key"), goqu.COUNT(goqu.Star()).As("count")).
		Where(goqu.C("price_status").Eq(string(status)), goqu.C(column).IsNotNull()).
		GroupBy(column).
		Order(goqu.C(column).Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var counts []groupCount
	if err := sqlx.SelectContext(ctx, a.exec, &counts, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to load "+column+" counts", err)
	}
	return counts, nil
}
