package entities

// TherapeuticMoiety is a VTM, the abstract active substance a product delivers
type TherapeuticMoiety struct {
	ID   int64  `json:"vtmid" db:"vtmid"`
	Name string `json:"name" db:"name"`
}

// VirtualProduct is a VMP: a generic ingredient + form concept
type VirtualProduct struct {
	ID          int64        `json:"vpid" db:"vpid"`
	MoietyID    *int64       `json:"vtmid,omitempty" db:"vtmid"`
	Name        string       `json:"name" db:"name"`
	Ingredients []Ingredient `json:"ingredients,omitempty" db:"-"`
	// FormCodes is ordered by code; the first entry is the principal form
	FormCodes  []int64 `json:"form_codes,omitempty" db:"-"`
	RouteCodes []int64 `json:"route_codes,omitempty" db:"-"`
}

// Ingredient is one substance of a VMP with its strength numerator.
// Strength and StrengthUnit are nil when the source omits them.
type Ingredient struct {
	ProductID    int64    `json:"vpid" db:"vpid"`
	SubstanceID  int64    `json:"isid" db:"isid"`
	Name         string   `json:"name" db:"name"`
	Strength     *float64 `json:"strength,omitempty" db:"strnt_nmrtr_val"`
	StrengthUnit *int64   `json:"strength_uom,omitempty" db:"strnt_nmrtr_uom_code"`
}

// PrincipalIngredient returns the first ingredient in stored order
func (p *VirtualProduct) PrincipalIngredient() (Ingredient, bool) {
	if p == nil || len(p.Ingredients) == 0 {
		return Ingredient{}, false
	}
	return p.Ingredients[0], true
}

// PrincipalForm returns the first dosage form code
func (p *VirtualProduct) PrincipalForm() (int64, bool) {
	if p == nil || len(p.FormCodes) == 0 {
		return 0, false
	}
	return p.FormCodes[0], true
}

// VirtualPack is a VMPP: a VMP at a quantity and unit of measure
type VirtualPack struct {
	ID           int64   `json:"vppid" db:"vppid"`
	ProductID    int64   `json:"vpid" db:"vpid"`
	Name         string  `json:"name" db:"name"`
	Quantity     float64 `json:"qty_value" db:"qty_value"`
	QuantityUnit int64   `json:"qty_uom_code" db:"qty_uom_code"`
}

// ActualProduct is an AMP: a licensed, supplier-specific realisation of a VMP
type ActualProduct struct {
	ID               int64   `json:"apid" db:"apid"`
	VirtualProductID int64   `json:"vpid" db:"vpid"`
	Name             string  `json:"name" db:"name"`
	SupplierCode     int64   `json:"supp_code" db:"supp_code"`
	LicensingCode    int64   `json:"lic_auth_code" db:"lic_auth_code"`
	AvailabilityCode int64   `json:"avail_restrict_code" db:"avail_restrict_code"`
	DiscontinuedCode *int64  `json:"disc_code,omitempty" db:"disc_code"`
	DiscontinuedDate *string `json:"disc_date,omitempty" db:"disc_date"`
}

// Discontinued reports whether the product carries a discontinuation code or date
func (p *ActualProduct) Discontinued() bool {
	return p != nil && (p.DiscontinuedCode != nil || p.DiscontinuedDate != nil)
}

// ActualPack is an AMPP, the sellable unit a PriceRecord attaches to
type ActualPack struct {
	ID               int64   `json:"appid" db:"appid"`
	ProductID        int64   `json:"apid" db:"apid"`
	VirtualPackID    int64   `json:"vppid" db:"vppid"`
	Name             string  `json:"name" db:"name"`
	LegalCategory    int64   `json:"legal_cat_code" db:"legal_cat_code"`
	DiscontinuedCode *int64  `json:"disc_code,omitempty" db:"disc_code"`
	DiscontinuedDate *string `json:"disc_date,omitempty" db:"disc_date"`
}

// Discontinued reports whether the pack carries a discontinuation code or date
func (p *ActualPack) Discontinued() bool {
	return p != nil && (p.DiscontinuedCode != nil || p.DiscontinuedDate != nil)
}

// PackInfo is the reimbursement side table of an AMPP
type PackInfo struct {
	PackID              int64 `json:"appid" db:"appid"`
	ReimbursementStatus int64 `json:"reimb_stat_code" db:"reimb_stat_code"`
}

// PrescribingInfo is the prescribing side table of an AMPP
type PrescribingInfo struct {
	PackID       int64  `json:"appid" db:"appid"`
	HospitalOnly *int64 `json:"hosp,omitempty" db:"hosp"`
}

// IsHospitalOnly reports whether the hospital-only flag is set
func (p *PrescribingInfo) IsHospitalOnly() bool {
	return p != nil && p.HospitalOnly != nil && *p.HospitalOnly == 1
}

// Catalog is the full reference dataset plus current price records as read
// at the start of a run
type Catalog struct {
	VirtualProducts map[int64]*VirtualProduct
	VirtualPacks    map[int64]*VirtualPack
	ActualProducts  map[int64]*ActualProduct
	ActualPacks     map[int64]*ActualPack
	PackInfo        map[int64]*PackInfo
	PrescribingInfo map[int64]*PrescribingInfo
	PriceRecords    map[int64]*PriceRecord
}

// NewCatalog returns an empty catalog with initialised maps
func NewCatalog() *Catalog {
	return &Catalog{
		VirtualProducts: make(map[int64]*VirtualProduct),
		VirtualPacks:    make(map[int64]*VirtualPack),
		ActualProducts:  make(map[int64]*ActualProduct),
		ActualPacks:     make(map[int64]*ActualPack),
		PackInfo:        make(map[int64]*PackInfo),
		PrescribingInfo: make(map[int64]*PrescribingInfo),
		PriceRecords:    make(map[int64]*PriceRecord),
	}
}
