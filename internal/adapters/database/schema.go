package database

import (
	"context"

	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
)

// schemaStatements is the dm+d store schema. Every statement is idempotent and
// valid on both PostgreSQL and SQLite.
//
// seq on vmp_ingredient and vmp_form is the loader's source position; the
// first row of a product is its principal ingredient or form.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS vtm (
		vtmid BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		abbrev_name TEXT,
		invalid INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS vmp (
		vpid BIGINT PRIMARY KEY,
		vtmid BIGINT REFERENCES vtm(vtmid),
		name TEXT NOT NULL,
		abbrev_name TEXT,
		basis_code INTEGER,
		pres_status_code INTEGER,
		invalid INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS ingredient (
		isid BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		invalid INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS vmp_ingredient (
		vpid BIGINT NOT NULL REFERENCES vmp(vpid),
		isid BIGINT NOT NULL REFERENCES ingredient(isid),
		basis_strnt_code INTEGER,
		strnt_nmrtr_val DOUBLE PRECISION,
		strnt_nmrtr_uom_code BIGINT,
		strnt_dnmtr_val DOUBLE PRECISION,
		strnt_dnmtr_uom_code BIGINT,
		seq INTEGER,
		PRIMARY KEY (vpid, isid)
	)`,
	`CREATE TABLE IF NOT EXISTS vmp_form (
		vpid BIGINT NOT NULL REFERENCES vmp(vpid),
		form_code BIGINT NOT NULL,
		seq INTEGER,
		PRIMARY KEY (vpid, form_code)
	)`,
	`CREATE TABLE IF NOT EXISTS vmp_route (
		vpid BIGINT NOT NULL REFERENCES vmp(vpid),
		route_code BIGINT NOT NULL,
		PRIMARY KEY (vpid, route_code)
	)`,
	`CREATE TABLE IF NOT EXISTS vmpp (
		vppid BIGINT PRIMARY KEY,
		vpid BIGINT NOT NULL REFERENCES vmp(vpid),
		name TEXT NOT NULL,
		qty_value DOUBLE PRECISION NOT NULL,
		qty_uom_code BIGINT NOT NULL,
		invalid INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS vmpp_dt_info (
		vppid BIGINT NOT NULL REFERENCES vmpp(vppid),
		pay_cat_code INTEGER NOT NULL,
		price BIGINT,
		dt DATE,
		prev_price BIGINT,
		PRIMARY KEY (vppid, pay_cat_code)
	)`,
	`CREATE TABLE IF NOT EXISTS amp (
		apid BIGINT PRIMARY KEY,
		vpid BIGINT NOT NULL REFERENCES vmp(vpid),
		name TEXT NOT NULL,
		description TEXT,
		supp_code BIGINT NOT NULL,
		lic_auth_code INTEGER NOT NULL,
		avail_restrict_code INTEGER NOT NULL,
		disc_code INTEGER,
		disc_date DATE,
		invalid INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS ampp (
		appid BIGINT PRIMARY KEY,
		apid BIGINT NOT NULL REFERENCES amp(apid),
		vppid BIGINT NOT NULL REFERENCES vmpp(vppid),
		name TEXT NOT NULL,
		legal_cat_code INTEGER NOT NULL,
		disc_code INTEGER,
		disc_date DATE,
		invalid INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS ampp_pack_info (
		appid BIGINT PRIMARY KEY REFERENCES ampp(appid),
		reimb_stat_code INTEGER NOT NULL,
		reimb_stat_date DATE,
		reimb_stat_prev_code INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS ampp_prescrib_info (
		appid BIGINT PRIMARY KEY REFERENCES ampp(appid),
		sched_1 INTEGER,
		sched_2 INTEGER,
		acbs INTEGER,
		padm INTEGER,
		fp10_mda INTEGER,
		hosp INTEGER,
		nurse_f INTEGER,
		dent_f INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS ampp_price_info (
		appid BIGINT PRIMARY KEY REFERENCES ampp(appid),
		price BIGINT,
		price_date DATE,
		price_prev BIGINT,
		price_basis_code INTEGER,
		calculation_method TEXT,
		price_status TEXT,
		missing_reason TEXT,
		confidence_score DOUBLE PRECISION,
		calculation_date TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS unified_search (
		appid BIGINT PRIMARY KEY REFERENCES ampp(appid),
		apid BIGINT NOT NULL,
		vppid BIGINT NOT NULL,
		vpid BIGINT NOT NULL,
		vtmid BIGINT,
		name TEXT NOT NULL,
		is_brand BOOLEAN NOT NULL,
		dt_price BIGINT,
		nhs_price BIGINT,
		calculation_method TEXT,
		price_status TEXT,
		last_updated TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vmp_vtmid ON vmp(vtmid)`,
	`CREATE INDEX IF NOT EXISTS idx_vmpp_vpid ON vmpp(vpid)`,
	`CREATE INDEX IF NOT EXISTS idx_amp_vpid ON amp(vpid)`,
	`CREATE INDEX IF NOT EXISTS idx_ampp_apid ON ampp(apid)`,
	`CREATE INDEX IF NOT EXISTS idx_ampp_vppid ON ampp(vppid)`,
	`CREATE INDEX IF NOT EXISTS idx_vmp_ingredient_isid ON vmp_ingredient(isid)`,
	`CREATE INDEX IF NOT EXISTS idx_price_info_status ON ampp_price_info(price_status)`,
	`CREATE INDEX IF NOT EXISTS idx_unified_search_vppid ON unified_search(vppid)`,
}

// Migrate creates any missing tables and indexes in one transaction
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.conn.DB().BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin migration", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewInternalError("failed to apply schema", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit migration", err)
	}
	return nil
}
