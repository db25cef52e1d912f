package pricing

import (
	"math"
	"sort"
	"strings"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
)

// Snapshot is an immutable, indexed view of the catalog as read at run start.
// Every comparison price consulted during a run comes from here, so writes
// made during the run are never visible to later estimates.
type Snapshot struct {
	catalog *entities.Catalog

	packsByProduct     map[int64][]int64
	packsByVirtualPack map[int64][]int64
	productsByVirtual  map[int64][]int64
	virtualsByName     map[string][]int64
	comparablePrices   map[int64]int64
	unpriced           []int64
}

// NewSnapshot indexes c. The catalog must not be mutated afterwards.
func NewSnapshot(c *entities.Catalog) *Snapshot {
	if c == nil {
		c = entities.NewCatalog()
	}
	s := &Snapshot{
		catalog:            c,
		packsByProduct:     make(map[int64][]int64),
		packsByVirtualPack: make(map[int64][]int64),
		productsByVirtual:  make(map[int64][]int64),
		virtualsByName:     make(map[string][]int64),
		comparablePrices:   make(map[int64]int64),
	}

	for id, pack := range c.ActualPacks {
		s.packsByProduct[pack.ProductID] = append(s.packsByProduct[pack.ProductID], id)
		s.packsByVirtualPack[pack.VirtualPackID] = append(s.packsByVirtualPack[pack.VirtualPackID], id)

		record := c.PriceRecords[id]
		if record.IsComparable() {
			s.comparablePrices[id] = *record.Price
		}
		if !record.HasPrice() {
			s.unpriced = append(s.unpriced, id)
		}
	}
	for id, product := range c.ActualProducts {
		s.productsByVirtual[product.VirtualProductID] = append(s.productsByVirtual[product.VirtualProductID], id)
	}
	for id, vmp := range c.VirtualProducts {
		seen := make(map[string]bool, len(vmp.Ingredients))
		for _, ing := range vmp.Ingredients {
			key := ingredientKey(ing.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			s.virtualsByName[key] = append(s.virtualsByName[key], id)
		}
	}

	for _, index := range []map[int64][]int64{s.packsByProduct, s.packsByVirtualPack, s.productsByVirtual} {
		for _, ids := range index {
			sortIDs(ids)
		}
	}
	for _, ids := range s.virtualsByName {
		sortIDs(ids)
	}
	sortIDs(s.unpriced)

	return s
}

// UnpricedPacks returns the packs whose price record is absent or has a null or
// zero price, in ascending id order
func (s *Snapshot) UnpricedPacks() []int64 {
	return s.unpriced
}

// Pack returns an ActualPack by id
func (s *Snapshot) Pack(id int64) *entities.ActualPack {
	return s.catalog.ActualPacks[id]
}

// Product returns an ActualProduct by id
func (s *Snapshot) Product(id int64) *entities.ActualProduct {
	return s.catalog.ActualProducts[id]
}

// VirtualPack returns a VirtualPack by id
func (s *Snapshot) VirtualPack(id int64) *entities.VirtualPack {
	return s.catalog.VirtualPacks[id]
}

// VirtualProduct returns a VirtualProduct by id
func (s *Snapshot) VirtualProduct(id int64) *entities.VirtualProduct {
	return s.catalog.VirtualProducts[id]
}

// PackInfo returns the reimbursement info of a pack, or nil
func (s *Snapshot) PackInfo(id int64) *entities.PackInfo {
	return s.catalog.PackInfo[id]
}

// PrescribingInfo returns the prescribing info of a pack, or nil
func (s *Snapshot) PrescribingInfo(id int64) *entities.PrescribingInfo {
	return s.catalog.PrescribingInfo[id]
}

// PriceRecord returns the run-start price record of a pack, or nil
func (s *Snapshot) PriceRecord(id int64) *entities.PriceRecord {
	return s.catalog.PriceRecords[id]
}

// ComparablePrice returns the price a pack contributes to estimates
func (s *Snapshot) ComparablePrice(id int64) (int64, bool) {
	p, ok := s.comparablePrices[id]
	return p, ok
}

// PacksOfProduct returns the packs of an ActualProduct in ascending id order
func (s *Snapshot) PacksOfProduct(apid int64) []int64 {
	return s.packsByProduct[apid]
}

// PacksOfVirtualPack returns the packs realising a VirtualPack in ascending id order
func (s *Snapshot) PacksOfVirtualPack(vppid int64) []int64 {
	return s.packsByVirtualPack[vppid]
}

// ProductsOfVirtualProduct returns the ActualProducts of a VirtualProduct in ascending id order
func (s *Snapshot) ProductsOfVirtualProduct(vpid int64) []int64 {
	return s.productsByVirtual[vpid]
}

// VirtualProductsWithIngredient returns the VirtualProducts containing an
// ingredient of the given name (case-insensitive) in ascending id order
func (s *Snapshot) VirtualProductsWithIngredient(name string) []int64 {
	return s.virtualsByName[ingredientKey(name)]
}

// Target is a pack under evaluation with its resolved hierarchy
type Target struct {
	Pack           *entities.ActualPack
	Product        *entities.ActualProduct
	VirtualPack    *entities.VirtualPack
	VirtualProduct *entities.VirtualProduct
}

// ResolveTarget links a pack to its product, virtual pack and virtual product.
// A broken link or unusable quantity is a per-pack validation error.
func (s *Snapshot) ResolveTarget(packID int64) (*Target, error) {
	pack := s.Pack(packID)
	if pack == nil {
		return nil, apperrors.NewNotFoundError(packMessage(packID, "does not exist"))
	}
	product := s.Product(pack.ProductID)
	if product == nil {
		return nil, apperrors.NewValidationError(packMessage(packID, "has no actual product"))
	}
	vpack := s.VirtualPack(pack.VirtualPackID)
	if vpack == nil {
		return nil, apperrors.NewValidationError(packMessage(packID, "has no virtual pack"))
	}
	if !validQuantity(vpack.Quantity) {
		return nil, apperrors.NewValidationError(packMessage(packID, "has a non-positive pack quantity"))
	}
	vmp := s.VirtualProduct(vpack.ProductID)
	if vmp == nil {
		return nil, apperrors.NewValidationError(packMessage(packID, "has no virtual product"))
	}
	return &Target{Pack: pack, Product: product, VirtualPack: vpack, VirtualProduct: vmp}, nil
}

func validQuantity(q float64) bool {
	return q > 0 && !math.IsInf(q, 0) && !math.IsNaN(q)
}

func ingredientKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
