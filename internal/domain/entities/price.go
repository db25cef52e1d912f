package entities

import (
	"fmt"
	"time"
)

// PriceStatus records how a pack's price came to be
type PriceStatus string

const (
	// PriceStatusSource marks a price taken from the reference data as-is
	PriceStatusSource               PriceStatus = ""
	PriceStatusCalculated           PriceStatus = "calculated"
	PriceStatusIntentionallyMissing PriceStatus = "intentionally_missing"
	PriceStatusUnknown              PriceStatus = "unknown"
)

// CalculationMethod names the estimation rule that produced a price
type CalculationMethod string

const (
	MethodSameProductDifferentSize CalculationMethod = "same_product_different_size"
	MethodSameVMPPDifferentBrand   CalculationMethod = "same_vmpp_different_brand"
	MethodSimilarVMP               CalculationMethod = "similar_vmp"
	MethodNone                     CalculationMethod = "none"
)

// CalculationMethods lists the estimation methods in cascade order
var CalculationMethods = []CalculationMethod{
	MethodSameProductDifferentSize,
	MethodSameVMPPDifferentBrand,
	MethodSimilarVMP,
}

// MissingReason explains why a pack has no price
type MissingReason string

const (
	ReasonNonReimbursable MissingReason = "non_reimbursable"
	ReasonDiscontinued    MissingReason = "discontinued"
	ReasonHospitalOnly    MissingReason = "hospital_only"
	ReasonNotAvailable    MissingReason = "not_available"
	ReasonUnknown         MissingReason = "unknown"
)

// Price basis codes stamped on inserted records
const (
	PriceBasisCalculated int64 = 3
	PriceBasisMissing    int64 = 4
)

// PriceRecord is the price row of an AMPP. Prices are in pence.
type PriceRecord struct {
	PackID          int64             `json:"appid" db:"appid"`
	Price           *int64            `json:"price,omitempty" db:"price"`
	PreviousPrice   *int64            `json:"price_prev,omitempty" db:"price_prev"`
	PriceDate       *string           `json:"price_date,omitempty" db:"price_date"`
	PriceBasisCode  *int64            `json:"price_basis_code,omitempty" db:"price_basis_code"`
	Status          PriceStatus       `json:"price_status,omitempty" db:"price_status"`
	Method          CalculationMethod `json:"calculation_method,omitempty" db:"calculation_method"`
	MissingReason   MissingReason     `json:"missing_reason,omitempty" db:"missing_reason"`
	ConfidenceScore *float64          `json:"confidence_score,omitempty" db:"confidence_score"`
	CalculationDate *time.Time        `json:"calculation_date,omitempty" db:"calculation_date"`
}

// HasPrice reports whether the record carries a usable (positive) price
func (r *PriceRecord) HasPrice() bool {
	return r != nil && r.Price != nil && *r.Price > 0
}

// IsComparable reports whether the record may seed an estimate for another pack.
// Calculated prices never do, so every run derives from source prices only.
func (r *PriceRecord) IsComparable() bool {
	return r.HasPrice() && r.Status != PriceStatusCalculated
}

// Validate checks the status invariants of a record about to be written
func (r *PriceRecord) Validate() error {
	switch r.Status {
	case PriceStatusCalculated:
		if r.Price == nil {
			return fmt.Errorf("pack %d: calculated record without price", r.PackID)
		}
		if r.Method == "" || r.Method == MethodNone {
			return fmt.Errorf("pack %d: calculated record without method", r.PackID)
		}
		if r.ConfidenceScore == nil || *r.ConfidenceScore <= 0 || *r.ConfidenceScore > 1 {
			return fmt.Errorf("pack %d: confidence outside (0,1]", r.PackID)
		}
	case PriceStatusIntentionallyMissing:
		if r.Price != nil {
			return fmt.Errorf("pack %d: intentionally missing record with price", r.PackID)
		}
		if r.MissingReason == "" || r.MissingReason == ReasonUnknown {
			return fmt.Errorf("pack %d: intentionally missing record without reason", r.PackID)
		}
	case PriceStatusUnknown:
		if r.Price != nil {
			return fmt.Errorf("pack %d: unresolved record with price", r.PackID)
		}
	}
	return nil
}
