package pricing

import (
	"testing"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func estimateFor(t *testing.T, rule Rule, s *Snapshot, packID int64) Outcome {
	t.Helper()
	target, err := s.ResolveTarget(packID)
	require.NoError(t, err)
	return rule.Estimate(s, target)
}

func requireEstimated(t *testing.T, out Outcome) Estimated {
	t.Helper()
	est, ok := out.(Estimated)
	require.True(t, ok, "expected Estimated, got %#v", out)
	return est
}

func TestSameProductRule_ScalesUnitPrice(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 100).
		vmpp(11, 1, 50).
		amp(100, 1).
		ampp(1000, 100, 10).
		ampp(1001, 100, 11).
		price(1001, 250).
		snapshot()

	est := requireEstimated(t, estimateFor(t, SameProductRule{}, s, 1000))

	assert.Equal(t, int64(500), est.Price)
	assert.InDelta(t, 0.45, est.Confidence, 1e-9)
	assert.Equal(t, entities.MethodSameProductDifferentSize, est.Method)
	assert.Equal(t, []int64{1001}, est.Basis)
}

func TestSameProductRule_TieBreaksOnLowestPackID(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 20).
		vmpp(11, 1, 30).
		vmpp(12, 1, 10).
		amp(100, 1).
		ampp(1000, 100, 10).
		ampp(1001, 100, 11).
		ampp(1002, 100, 12).
		price(1001, 600).
		price(1002, 100).
		snapshot()

	for i := 0; i < 20; i++ {
		est := requireEstimated(t, estimateFor(t, SameProductRule{}, s, 1000))
		assert.Equal(t, []int64{1001}, est.Basis)
		assert.Equal(t, int64(400), est.Price)
		assert.InDelta(t, 0.6, est.Confidence, 1e-9)
	}
}

func TestSameProductRule_RequiresSameUnit(t *testing.T) {
	b := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 100).
		vmpp(11, 1, 50).
		amp(100, 1).
		ampp(1000, 100, 10).
		ampp(1001, 100, 11).
		price(1001, 250)
	b.c.VirtualPacks[11].QuantityUnit = uomMg

	out := estimateFor(t, SameProductRule{}, b.snapshot(), 1000)
	assert.IsType(t, NoMatch{}, out)
}

func TestSameProductRule_IgnoresCalculatedSiblings(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 100).
		vmpp(11, 1, 50).
		amp(100, 1).
		ampp(1000, 100, 10).
		ampp(1001, 100, 11).
		record(&entities.PriceRecord{PackID: 1001, Price: int64Ptr(250), Status: entities.PriceStatusCalculated}).
		snapshot()

	out := estimateFor(t, SameProductRule{}, s, 1000)
	assert.IsType(t, NoMatch{}, out)
}

func TestSameVirtualPackRule_MeanOfOtherBrands(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 32).
		amp(100, 1).amp(101, 1).amp(102, 1).amp(103, 1).
		ampp(1000, 100, 10).
		ampp(1001, 101, 10).
		ampp(1002, 102, 10).
		ampp(1003, 103, 10).
		price(1001, 100).
		price(1002, 120).
		price(1003, 140).
		snapshot()

	est := requireEstimated(t, estimateFor(t, SameVirtualPackRule{}, s, 1000))

	// population stdev of {100,120,140} is 16.3299
	assert.Equal(t, int64(120), est.Price)
	assert.InDelta(t, 0.7*0.6*(1-16.329932/120), est.Confidence, 1e-6)
	assert.Equal(t, entities.MethodSameVMPPDifferentBrand, est.Method)
	assert.Equal(t, []int64{1001, 1002, 1003}, est.Basis)
}

func TestSameVirtualPackRule_ExcludesSameProduct(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 32).
		amp(100, 1).
		ampp(1000, 100, 10).
		ampp(1001, 100, 10).
		price(1001, 100).
		snapshot()

	out := estimateFor(t, SameVirtualPackRule{}, s, 1000)
	assert.IsType(t, NoMatch{}, out)
}

func TestSameVirtualPackRule_FullSampleUniformPrices(t *testing.T) {
	b := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 32).
		amp(100, 1).
		ampp(1000, 100, 10)
	for i := int64(1); i <= 6; i++ {
		b.amp(100+i, 1).ampp(1000+i, 100+i, 10).price(1000+i, 90)
	}

	est := requireEstimated(t, estimateFor(t, SameVirtualPackRule{}, b.snapshot(), 1000))
	assert.Equal(t, int64(90), est.Price)
	assert.InDelta(t, 0.7, est.Confidence, 1e-9)
}

func similarCatalog() *catalogBuilder {
	return newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 32).
		amp(100, 1).
		ampp(1000, 100, 10).
		// strength diff |1000-500|/500 = 1.0, unit price 10
		vmp(2, "paracetamol", 1000).
		vmpp(20, 2, 32).
		amp(200, 2).
		ampp(2000, 200, 20).
		price(2000, 320).
		// strength diff |250-500|/500 = 0.5, unit price 5
		vmp(3, "PARACETAMOL", 250).
		vmpp(30, 3, 16).
		amp(300, 3).
		ampp(3000, 300, 30).
		price(3000, 80)
}

func TestSimilarProductRule_StrengthWeightedMean(t *testing.T) {
	est := requireEstimated(t, estimateFor(t, SimilarProductRule{Limit: 5}, similarCatalog().snapshot(), 1000))

	// weights 1/1.5 and 1/2 over unit prices 5 and 10, scaled to 32 units
	wantUnit := (5.0/1.5 + 10.0/2) / (1/1.5 + 1.0/2)
	assert.Equal(t, roundPence(wantUnit*32), est.Price)
	assert.Equal(t, int64(229), est.Price)
	assert.InDelta(t, 0.5/1.5, est.Confidence, 1e-9)
	assert.Equal(t, entities.MethodSimilarVMP, est.Method)
	assert.Equal(t, []int64{3000, 2000}, est.Basis)
}

func TestSimilarProductRule_RespectsLimit(t *testing.T) {
	est := requireEstimated(t, estimateFor(t, SimilarProductRule{Limit: 1}, similarCatalog().snapshot(), 1000))

	assert.Equal(t, []int64{3000}, est.Basis)
	assert.Equal(t, int64(160), est.Price)
}

func TestSimilarProductRule_FiltersFormAndUnit(t *testing.T) {
	b := similarCatalog()
	b.c.VirtualProducts[2].FormCodes = []int64{999}
	otherUnit := int64(1)
	b.c.VirtualProducts[3].Ingredients[0].StrengthUnit = &otherUnit

	out := estimateFor(t, SimilarProductRule{Limit: 5}, b.snapshot(), 1000)
	assert.IsType(t, NoMatch{}, out)
}

func TestSimilarProductRule_UnknownStrength(t *testing.T) {
	b := similarCatalog()
	b.c.VirtualProducts[1].Ingredients[0].Strength = nil

	est := requireEstimated(t, estimateFor(t, SimilarProductRule{Limit: 5}, b.snapshot(), 1000))

	assert.InDelta(t, 0.3, est.Confidence, 1e-9)
	// equal weights over unit prices 5 and 10
	assert.Equal(t, int64(240), est.Price)
}

func TestSimilarProductRule_ExcludesTargetVirtualProduct(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 32).
		amp(100, 1).
		amp(101, 1).
		ampp(1000, 100, 10).
		ampp(1001, 101, 10).
		price(1001, 100).
		snapshot()

	out := estimateFor(t, SimilarProductRule{Limit: 5}, s, 1000)
	assert.IsType(t, NoMatch{}, out)
}

func TestCascade_StopsAtFirstEstimate(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 100).
		vmpp(11, 1, 50).
		amp(100, 1).
		amp(101, 1).
		ampp(1000, 100, 10).
		ampp(1001, 100, 11).
		ampp(1002, 101, 10).
		price(1001, 250).
		price(1002, 999).
		snapshot()

	target, err := s.ResolveTarget(1000)
	require.NoError(t, err)

	est, misses := Cascade(DefaultRules(5), s, target)
	require.NotNil(t, est)
	assert.Equal(t, entities.MethodSameProductDifferentSize, est.Method)
	assert.Empty(t, misses)
}

func TestCascade_NoRuleMatches(t *testing.T) {
	s := basePack().snapshot()
	target, err := s.ResolveTarget(1000)
	require.NoError(t, err)

	est, misses := Cascade(DefaultRules(5), s, target)
	assert.Nil(t, est)
	assert.Len(t, misses, 3)
}
