package database

import (
	"context"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/sqlite"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// CatalogAdapter implements CatalogRepository
type CatalogAdapter struct {
	exec   executor
	db     goqu.DialectWrapper
	driver string
}

// NewCatalogAdapter creates a new catalog adapter. driver is the goqu dialect
// name of the connection.
func NewCatalogAdapter(exec executor, db goqu.DialectWrapper, driver string) repositories.CatalogRepository {
	return &CatalogAdapter{
		exec:   exec,
		db:     db,
		driver: driver,
	}
}

type vmpFormRow struct {
	ProductID int64 `db:"vpid"`
	Code      int64 `db:"code"`
}

// LoadCatalog reads the whole hierarchy and every price record
func (a *CatalogAdapter) LoadCatalog(ctx context.Context) (*entities.Catalog, error) {
	c := entities.NewCatalog()

	var products []*entities.VirtualProduct
	if err := a.selectAll(ctx, &products, "virtual products",
		a.db.From("vmp").Select("vpid", "vtmid", "name").Order(goqu.C("vpid").Asc())); err != nil {
		return nil, err
	}
	for _, p := range products {
		c.VirtualProducts[p.ID] = p
	}

	var ingredients []entities.Ingredient
	if err := a.selectAll(ctx, &ingredients, "ingredients",
		a.db.From(goqu.T("vmp_ingredient").As("vi")).
			Join(goqu.T("ingredient").As("i"), goqu.On(goqu.I("vi.isid").Eq(goqu.I("i.isid")))).
			Select(
				goqu.I("vi.vpid"),
				goqu.I("vi.isid"),
				goqu.I("i.name"),
				goqu.I("vi.strnt_nmrtr_val"),
				goqu.I("vi.strnt_nmrtr_uom_code"),
			).
			Order(a.storedOrder("vi", "isid")...)); err != nil {
		return nil, err
	}
	for _, ing := range ingredients {
		if p, ok := c.VirtualProducts[ing.ProductID]; ok {
			p.Ingredients = append(p.Ingredients, ing)
		}
	}

	var forms []vmpFormRow
	if err := a.selectAll(ctx, &forms, "dosage forms",
		a.db.From(goqu.T("vmp_form").As("vf")).
			Select(goqu.I("vf.vpid"), goqu.I("vf.form_code").As("code")).
			Order(a.storedOrder("vf", "form_code")...)); err != nil {
		return nil, err
	}
	for _, f := range forms {
		if p, ok := c.VirtualProducts[f.ProductID]; ok {
			p.FormCodes = append(p.FormCodes, f.Code)
		}
	}

	var routes []vmpFormRow
	if err := a.selectAll(ctx, &routes, "routes",
		a.db.From("vmp_route").
			Select("vpid", goqu.C("route_code").As("code")).
			Order(goqu.C("vpid").Asc(), goqu.C("route_code").Asc())); err != nil {
		return nil, err
	}
	for _, r := range routes {
		if p, ok := c.VirtualProducts[r.ProductID]; ok {
			p.RouteCodes = append(p.RouteCodes, r.Code)
		}
	}

	var packs []*entities.VirtualPack
	if err := a.selectAll(ctx, &packs, "virtual packs",
		a.db.From("vmpp").Select("vppid", "vpid", "name", "qty_value", "qty_uom_code")); err != nil {
		return nil, err
	}
	for _, p := range packs {
		c.VirtualPacks[p.ID] = p
	}

	var actualProducts []*entities.ActualProduct
	if err := a.selectAll(ctx, &actualProducts, "actual products",
		a.db.From("amp").Select(
			"apid", "vpid", "name", "supp_code", "lic_auth_code", "avail_restrict_code", "disc_code",
			goqu.Cast(goqu.C("disc_date"), "TEXT").As("disc_date"),
		)); err != nil {
		return nil, err
	}
	for _, p := range actualProducts {
		c.ActualProducts[p.ID] = p
	}

	var actualPacks []*entities.ActualPack
	if err := a.selectAll(ctx, &actualPacks, "actual packs",
		a.db.From("ampp").Select(
			"appid", "apid", "vppid", "name", "legal_cat_code", "disc_code",
			goqu.Cast(goqu.C("disc_date"), "TEXT").As("disc_date"),
		)); err != nil {
		return nil, err
	}
	for _, p := range actualPacks {
		c.ActualPacks[p.ID] = p
	}

	var packInfo []*entities.PackInfo
	if err := a.selectAll(ctx, &packInfo, "pack info",
		a.db.From("ampp_pack_info").Select("appid", "reimb_stat_code")); err != nil {
		return nil, err
	}
	for _, info := range packInfo {
		c.PackInfo[info.PackID] = info
	}

	var prescribing []*entities.PrescribingInfo
	if err := a.selectAll(ctx, &prescribing, "prescribing info",
		a.db.From("ampp_prescrib_info").Select("appid", "hosp")); err != nil {
		return nil, err
	}
	for _, info := range prescribing {
		c.PrescribingInfo[info.PackID] = info
	}

	var records []*entities.PriceRecord
	if err := a.selectAll(ctx, &records, "price records",
		a.db.From("ampp_price_info").Select(
			"appid", "price", "price_prev", "price_basis_code", "confidence_score",
			goqu.COALESCE(goqu.C("price_status"), "").As("price_status"),
			goqu.COALESCE(goqu.C("calculation_method"), "").As("calculation_method"),
			goqu.COALESCE(goqu.C("missing_reason"), "").As("missing_reason"),
		)); err != nil {
		return nil, err
	}
	for _, r := range records {
		c.PriceRecords[r.PackID] = r
	}

	return c, nil
}

// storedOrder sorts a product's link rows into load order: the loader's seq
// when present, then rowid on SQLite or the key column on PostgreSQL
func (a *CatalogAdapter) storedOrder(alias, key string) []exp.OrderedExpression {
	order := []exp.OrderedExpression{
		goqu.I(alias + ".vpid").Asc(),
		goqu.I(alias + ".seq").Asc().NullsLast(),
	}
	if a.driver == sqlite.Dialect {
		return append(order, goqu.I(alias+".rowid").Asc())
	}
	return append(order, goqu.I(alias+"."+key).Asc())
}

func (a *CatalogAdapter) selectAll(ctx context.Context, dest interface{}, what string, ds *goqu.SelectDataset) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}
	if err := sqlx.SelectContext(ctx, a.exec, dest, query, args...); err != nil {
		return apperrors.NewInternalError("failed to load "+what, err)
	}
	return nil
}
