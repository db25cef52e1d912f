// Package databasetest seeds throwaway SQLite stores for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/database"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/sqlite"
	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Unit and form codes used by fixtures
const (
	UnitTablet int64 = 428673006
	UnitMg     int64 = 258684004
	FormTablet int64 = 385055001
)

// DB is a migrated SQLite store in a temp directory
type DB struct {
	t     testing.TB
	Path  string
	Store *database.Store
	conn  *sqlite.Client
	db    goqu.DialectWrapper
}

// New creates and migrates an empty store. It is closed when the test ends.
func New(t testing.TB) *DB {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "dmd.db")
	conn, err := sqlite.NewClient(ctx, path)
	require.NoError(t, err)

	store := database.NewStore(conn)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	return &DB{
		t:     t,
		Path:  path,
		Store: store,
		conn:  conn,
		db:    goqu.Dialect(sqlite.Dialect),
	}
}

// SQL returns the raw connection
func (d *DB) SQL() *sqlx.DB {
	return d.conn.DB()
}

// Insert writes rows into table
func (d *DB) Insert(table string, rows ...goqu.Record) *DB {
	d.t.Helper()
	values := make([]interface{}, len(rows))
	for i, r := range rows {
		values[i] = r
	}
	query, _, err := d.db.Insert(table).Rows(values...).ToSQL()
	require.NoError(d.t, err)
	_, err = d.conn.DB().Exec(query)
	require.NoError(d.t, err)
	return d
}

// Product adds a VMP with one tablet-form ingredient of strength mg
func (d *DB) Product(vpid int64, name string, isid int64, ingredient string, strength float64) *DB {
	d.t.Helper()
	d.Insert("vmp", goqu.Record{"vpid": vpid, "name": name})
	d.Insert("vmp_form", goqu.Record{"vpid": vpid, "form_code": FormTablet})
	d.ensureIngredient(isid, ingredient)
	return d.Insert("vmp_ingredient", goqu.Record{
		"vpid":                 vpid,
		"isid":                 isid,
		"strnt_nmrtr_val":      strength,
		"strnt_nmrtr_uom_code": UnitMg,
	})
}

func (d *DB) ensureIngredient(isid int64, name string) {
	d.t.Helper()
	query, _, err := d.db.From("ingredient").
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("isid").Eq(isid)).
		ToSQL()
	require.NoError(d.t, err)
	var n int
	require.NoError(d.t, d.conn.DB().Get(&n, query))
	if n == 0 {
		d.Insert("ingredient", goqu.Record{"isid": isid, "name": name})
	}
}

// VirtualPack adds a VMPP of qty tablets
func (d *DB) VirtualPack(vppid, vpid int64, name string, qty float64) *DB {
	return d.Insert("vmpp", goqu.Record{
		"vppid":        vppid,
		"vpid":         vpid,
		"name":         name,
		"qty_value":    qty,
		"qty_uom_code": UnitTablet,
	})
}

// TariffPrice adds a drug tariff price for a VMPP
func (d *DB) TariffPrice(vppid int64, payCategory int, price int64) *DB {
	return d.Insert("vmpp_dt_info", goqu.Record{"vppid": vppid, "pay_cat_code": payCategory, "price": price})
}

// ActualProduct adds an available AMP
func (d *DB) ActualProduct(apid, vpid int64, name string) *DB {
	return d.Insert("amp", goqu.Record{
		"apid":                apid,
		"vpid":                vpid,
		"name":                name,
		"supp_code":           1,
		"lic_auth_code":       1,
		"avail_restrict_code": 1,
	})
}

// ActualPack adds a reimbursable AMPP
func (d *DB) ActualPack(appid, apid, vppid int64, name string) *DB {
	d.Insert("ampp", goqu.Record{
		"appid":          appid,
		"apid":           apid,
		"vppid":          vppid,
		"name":           name,
		"legal_cat_code": 1,
	})
	return d.Insert("ampp_pack_info", goqu.Record{"appid": appid, "reimb_stat_code": 1})
}

// HospitalOnly flags a pack as hospital only
func (d *DB) HospitalOnly(appid int64) *DB {
	return d.Insert("ampp_prescrib_info", goqu.Record{"appid": appid, "hosp": 1})
}

// Price adds a source price record
func (d *DB) Price(appid, price int64) *DB {
	return d.Insert("ampp_price_info", goqu.Record{"appid": appid, "price": price, "price_basis_code": 1})
}

// Record reads a pack's price record as stored
func (d *DB) Record(appid int64) *entities.PriceRecord {
	d.t.Helper()
	query, _, err := d.db.From("ampp_price_info").
		Select(
			"appid", "price", "price_prev", "price_basis_code", "confidence_score",
			goqu.Cast(goqu.C("price_date"), "TEXT").As("price_date"),
			goqu.COALESCE(goqu.C("price_status"), "").As("price_status"),
			goqu.COALESCE(goqu.C("calculation_method"), "").As("calculation_method"),
			goqu.COALESCE(goqu.C("missing_reason"), "").As("missing_reason"),
		).
		Where(goqu.C("appid").Eq(appid)).
		ToSQL()
	require.NoError(d.t, err)

	record := &entities.PriceRecord{}
	require.NoError(d.t, d.conn.DB().Get(record, query))
	return record
}

// SearchEntry reads a pack's search entry
func (d *DB) SearchEntry(appid int64) *entities.SearchEntry {
	d.t.Helper()
	entries, err := d.Store.SearchEntries().List(context.Background(), appid-1, 1)
	require.NoError(d.t, err)
	require.Len(d.t, entries, 1)
	require.Equal(d.t, appid, entries[0].PackID)
	return entries[0]
}

// Count returns the number of rows in table
func (d *DB) Count(table string) int {
	d.t.Helper()
	query, _, err := d.db.From(table).Select(goqu.COUNT(goqu.Star())).ToSQL()
	require.NoError(d.t, err)
	var n int
	require.NoError(d.t, d.conn.DB().Get(&n, query))
	return n
}
