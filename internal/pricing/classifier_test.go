package pricing

import (
	"testing"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePack() *catalogBuilder {
	return newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 32).
		amp(100, 1).
		ampp(1000, 100, 10)
}

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier([]int{1, 11}, 1)

	tests := []struct {
		name   string
		mutate func(c *entities.Catalog)
		want   entities.MissingReason
	}{
		{
			name:   "unexplained omission",
			mutate: func(c *entities.Catalog) {},
			want:   entities.ReasonUnknown,
		},
		{
			name: "non reimbursable status",
			mutate: func(c *entities.Catalog) {
				c.PackInfo[1000].ReimbursementStatus = 2
			},
			want: entities.ReasonNonReimbursable,
		},
		{
			name: "alternative reimbursable code",
			mutate: func(c *entities.Catalog) {
				c.PackInfo[1000].ReimbursementStatus = 11
			},
			want: entities.ReasonUnknown,
		},
		{
			name: "missing pack info is not a reason",
			mutate: func(c *entities.Catalog) {
				delete(c.PackInfo, 1000)
			},
			want: entities.ReasonUnknown,
		},
		{
			name: "discontinued pack",
			mutate: func(c *entities.Catalog) {
				c.ActualPacks[1000].DiscontinuedCode = int64Ptr(1)
			},
			want: entities.ReasonDiscontinued,
		},
		{
			name: "discontinued product",
			mutate: func(c *entities.Catalog) {
				date := "2023-04-01"
				c.ActualProducts[100].DiscontinuedDate = &date
			},
			want: entities.ReasonDiscontinued,
		},
		{
			name: "hospital only",
			mutate: func(c *entities.Catalog) {
				c.PrescribingInfo[1000] = &entities.PrescribingInfo{PackID: 1000, HospitalOnly: int64Ptr(1)}
			},
			want: entities.ReasonHospitalOnly,
		},
		{
			name: "hospital flag cleared",
			mutate: func(c *entities.Catalog) {
				c.PrescribingInfo[1000] = &entities.PrescribingInfo{PackID: 1000, HospitalOnly: int64Ptr(0)}
			},
			want: entities.ReasonUnknown,
		},
		{
			name: "not available",
			mutate: func(c *entities.Catalog) {
				c.ActualProducts[100].AvailabilityCode = 9
			},
			want: entities.ReasonNotAvailable,
		},
		{
			name: "discontinued takes precedence over hospital only",
			mutate: func(c *entities.Catalog) {
				c.ActualPacks[1000].DiscontinuedCode = int64Ptr(1)
				c.PrescribingInfo[1000] = &entities.PrescribingInfo{PackID: 1000, HospitalOnly: int64Ptr(1)}
			},
			want: entities.ReasonDiscontinued,
		},
		{
			name: "non reimbursable takes precedence over everything",
			mutate: func(c *entities.Catalog) {
				c.PackInfo[1000].ReimbursementStatus = 2
				c.ActualPacks[1000].DiscontinuedCode = int64Ptr(1)
				c.ActualProducts[100].AvailabilityCode = 9
			},
			want: entities.ReasonNonReimbursable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := basePack()
			tt.mutate(b.c)

			got, err := classifier.Classify(b.snapshot(), 1000)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifier_MissingProduct(t *testing.T) {
	b := basePack()
	delete(b.c.ActualProducts, 100)

	_, err := NewClassifier([]int{1}, 1).Classify(b.snapshot(), 1000)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
