package pricing

import (
	"math"
	"sort"
	"strings"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
)

// Outcome is the result of one estimation rule: Estimated or NoMatch
type Outcome interface {
	isOutcome()
}

// Estimated is a successful estimate. Price is in pence.
type Estimated struct {
	Price      int64
	Confidence float64
	Method     entities.CalculationMethod
	// Basis lists the packs whose prices produced the estimate
	Basis []int64
}

// NoMatch means the rule found nothing it could use
type NoMatch struct {
	Reason string
}

func (Estimated) isOutcome() {}
func (NoMatch) isOutcome()   {}

// Rule is one analogy-based estimator. Implementations are pure functions of
// the snapshot and the target.
type Rule interface {
	Method() entities.CalculationMethod
	Estimate(s *Snapshot, t *Target) Outcome
}

// DefaultRules returns the cascade in priority order
func DefaultRules(similarLimit int) []Rule {
	return []Rule{
		SameProductRule{},
		SameVirtualPackRule{},
		SimilarProductRule{Limit: similarLimit},
	}
}

// Cascade tries each rule in order and returns the first estimate. The
// returned NoMatch slice holds the reason of every rule that did not apply.
func Cascade(rules []Rule, s *Snapshot, t *Target) (*Estimated, []NoMatch) {
	var misses []NoMatch
	for _, rule := range rules {
		switch out := rule.Estimate(s, t).(type) {
		case Estimated:
			return &out, misses
		case NoMatch:
			misses = append(misses, out)
		}
	}
	return nil, misses
}

// SameProductRule prices a pack from the nearest-sized priced pack of the same
// ActualProduct with the same unit of measure
type SameProductRule struct{}

// Method implements Rule
func (SameProductRule) Method() entities.CalculationMethod {
	return entities.MethodSameProductDifferentSize
}

// Estimate implements Rule
func (r SameProductRule) Estimate(s *Snapshot, t *Target) Outcome {
	targetQty := t.VirtualPack.Quantity

	var (
		found     bool
		bestID    int64
		bestPrice int64
		bestQty   float64
		bestDist  = math.Inf(1)
	)
	for _, id := range s.PacksOfProduct(t.Product.ID) {
		if id == t.Pack.ID {
			continue
		}
		price, ok := s.ComparablePrice(id)
		if !ok {
			continue
		}
		vpack := siblingVirtualPack(s, id)
		if vpack == nil || vpack.QuantityUnit != t.VirtualPack.QuantityUnit || !validQuantity(vpack.Quantity) {
			continue
		}
		// ids are ascending, so a strict comparison keeps the lowest id on ties
		if dist := math.Abs(vpack.Quantity - targetQty); dist < bestDist {
			found = true
			bestID, bestPrice, bestQty, bestDist = id, price, vpack.Quantity, dist
		}
	}
	if !found {
		return NoMatch{Reason: "no priced pack of the same product with the same unit"}
	}

	estimate := roundPence(float64(bestPrice) / bestQty * targetQty)
	if estimate < 1 {
		return NoMatch{Reason: "estimate rounds to zero"}
	}
	return Estimated{
		Price:      estimate,
		Confidence: sizeConfidence(bestQty, targetQty),
		Method:     r.Method(),
		Basis:      []int64{bestID},
	}
}

// SameVirtualPackRule prices a pack from the mean price of other brands of the
// same VirtualPack
type SameVirtualPackRule struct{}

// Method implements Rule
func (SameVirtualPackRule) Method() entities.CalculationMethod {
	return entities.MethodSameVMPPDifferentBrand
}

// Estimate implements Rule
func (r SameVirtualPackRule) Estimate(s *Snapshot, t *Target) Outcome {
	var (
		prices []float64
		basis  []int64
	)
	for _, id := range s.PacksOfVirtualPack(t.VirtualPack.ID) {
		if id == t.Pack.ID {
			continue
		}
		pack := s.Pack(id)
		if pack == nil || pack.ProductID == t.Product.ID {
			continue
		}
		price, ok := s.ComparablePrice(id)
		if !ok {
			continue
		}
		prices = append(prices, float64(price))
		basis = append(basis, id)
	}
	if len(prices) == 0 {
		return NoMatch{Reason: "no priced pack of another brand for the virtual pack"}
	}

	mean, cv := meanAndCV(prices)
	estimate := roundPence(mean)
	if estimate < 1 {
		return NoMatch{Reason: "estimate rounds to zero"}
	}
	return Estimated{
		Price:      estimate,
		Confidence: brandConfidence(len(prices), cv),
		Method:     r.Method(),
		Basis:      basis,
	}
}

// SimilarProductRule prices a pack from other VirtualProducts sharing the
// principal ingredient, strength unit and dosage form, weighting each candidate's
// unit price by its strength distance
type SimilarProductRule struct {
	Limit int
}

// Method implements Rule
func (SimilarProductRule) Method() entities.CalculationMethod {
	return entities.MethodSimilarVMP
}

type similarCandidate struct {
	packID    int64
	unitPrice float64
	// diff is nil when either strength is missing
	diff    *float64
	qtyDist float64
}

// Estimate implements Rule
func (r SimilarProductRule) Estimate(s *Snapshot, t *Target) Outcome {
	principal, ok := t.VirtualProduct.PrincipalIngredient()
	if !ok {
		return NoMatch{Reason: "virtual product has no ingredients"}
	}
	if principal.StrengthUnit == nil {
		return NoMatch{Reason: "principal ingredient has no strength unit"}
	}
	form, ok := t.VirtualProduct.PrincipalForm()
	if !ok {
		return NoMatch{Reason: "virtual product has no form"}
	}

	targetQty := t.VirtualPack.Quantity
	var candidates []similarCandidate
	for _, vpid := range s.VirtualProductsWithIngredient(principal.Name) {
		if vpid == t.VirtualProduct.ID {
			continue
		}
		vmp := s.VirtualProduct(vpid)
		if vmp == nil || !hasForm(vmp, form) {
			continue
		}
		ing, ok := matchingIngredient(vmp, principal.Name, *principal.StrengthUnit)
		if !ok {
			continue
		}
		diff := strengthDiff(principal.Strength, ing.Strength)

		for _, apid := range s.ProductsOfVirtualProduct(vpid) {
			for _, id := range s.PacksOfProduct(apid) {
				price, ok := s.ComparablePrice(id)
				if !ok {
					continue
				}
				vpack := siblingVirtualPack(s, id)
				if vpack == nil || vpack.QuantityUnit != t.VirtualPack.QuantityUnit || !validQuantity(vpack.Quantity) {
					continue
				}
				candidates = append(candidates, similarCandidate{
					packID:    id,
					unitPrice: float64(price) / vpack.Quantity,
					diff:      diff,
					qtyDist:   math.Abs(vpack.Quantity - targetQty),
				})
			}
		}
	}
	if len(candidates) == 0 {
		return NoMatch{Reason: "no priced similar virtual product"}
	}

	sortCandidates(candidates)
	if r.Limit > 0 && len(candidates) > r.Limit {
		candidates = candidates[:r.Limit]
	}

	var weighted, weights float64
	basis := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		w := 1.0
		if c.diff != nil {
			w = 1 / (1 + *c.diff)
		}
		weighted += w * c.unitPrice
		weights += w
		basis = append(basis, c.packID)
	}

	estimate := roundPence(weighted / weights * targetQty)
	if estimate < 1 {
		return NoMatch{Reason: "estimate rounds to zero"}
	}
	return Estimated{
		Price:      estimate,
		Confidence: similarConfidence(candidates[0].diff),
		Method:     r.Method(),
		Basis:      basis,
	}
}

// sortCandidates orders by known strength difference, then unknown, then pack
// size distance and finally pack id
func sortCandidates(cs []similarCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		switch {
		case a.diff != nil && b.diff == nil:
			return true
		case a.diff == nil && b.diff != nil:
			return false
		case a.diff != nil && *a.diff != *b.diff:
			return *a.diff < *b.diff
		case a.qtyDist != b.qtyDist:
			return a.qtyDist < b.qtyDist
		default:
			return a.packID < b.packID
		}
	})
}

// strengthDiff is |candidate - target| relative to the target strength, with the
// denominator floored at 1
func strengthDiff(target, candidate *float64) *float64 {
	if target == nil || candidate == nil {
		return nil
	}
	d := math.Abs(*candidate-*target) / math.Max(1, *target)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	return &d
}

func matchingIngredient(vmp *entities.VirtualProduct, name string, unit int64) (entities.Ingredient, bool) {
	for _, ing := range vmp.Ingredients {
		if ing.StrengthUnit != nil && *ing.StrengthUnit == unit && strings.EqualFold(strings.TrimSpace(ing.Name), strings.TrimSpace(name)) {
			return ing, true
		}
	}
	return entities.Ingredient{}, false
}

func hasForm(vmp *entities.VirtualProduct, form int64) bool {
	for _, f := range vmp.FormCodes {
		if f == form {
			return true
		}
	}
	return false
}

func siblingVirtualPack(s *Snapshot, packID int64) *entities.VirtualPack {
	pack := s.Pack(packID)
	if pack == nil {
		return nil
	}
	return s.VirtualPack(pack.VirtualPackID)
}

func roundPence(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}
