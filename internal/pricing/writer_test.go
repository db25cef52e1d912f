package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPriceRecordRepository struct {
	mock.Mock
}

func (m *MockPriceRecordRepository) Insert(ctx context.Context, record *entities.PriceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPriceRecordRepository) Update(ctx context.Context, record *entities.PriceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

var runAt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestWriter_Apply(t *testing.T) {
	s := newCatalog().
		vmp(1, "Paracetamol", 500).
		vmpp(10, 1, 32).
		amp(100, 1).
		ampp(1000, 100, 10).
		ampp(1001, 100, 10).
		ampp(1002, 100, 10).
		price(1001, 0).
		snapshot()

	decisions := []Decision{
		{PackID: 1000, State: StateCalculated, Estimate: &Estimated{Price: 500, Confidence: 0.45, Method: entities.MethodSameProductDifferentSize}},
		{PackID: 1001, State: StateIntentionallyMissing, Reason: entities.ReasonDiscontinued},
		{PackID: 1002, State: StateUnresolved, Reason: entities.ReasonUnknown},
	}

	repo := new(MockPriceRecordRepository)
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(r *entities.PriceRecord) bool {
		return r.PackID == 1000 &&
			r.Status == entities.PriceStatusCalculated &&
			*r.Price == 500 &&
			*r.PriceBasisCode == entities.PriceBasisCalculated &&
			*r.PriceDate == "2024-03-01"
	})).Return(nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.PriceRecord) bool {
		return r.PackID == 1001 &&
			r.Status == entities.PriceStatusIntentionallyMissing &&
			r.MissingReason == entities.ReasonDiscontinued &&
			r.Price == nil &&
			*r.PreviousPrice == 0 &&
			r.PriceBasisCode == nil
	})).Return(nil).Once()
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(r *entities.PriceRecord) bool {
		return r.PackID == 1002 &&
			r.Status == entities.PriceStatusUnknown &&
			r.Method == entities.MethodNone &&
			r.Price == nil &&
			*r.PriceBasisCode == entities.PriceBasisMissing
	})).Return(nil).Once()

	summary, err := NewWriter(repo).Apply(context.Background(), s, decisions, runAt)

	require.NoError(t, err)
	assert.Equal(t, WriteSummary{Inserted: 2, Updated: 1}, summary)
	repo.AssertExpectations(t)
}

func TestWriter_StopsOnStoreError(t *testing.T) {
	s := basePack().ampp(1001, 100, 10).snapshot()
	decisions := []Decision{
		{PackID: 1000, State: StateUnresolved, Reason: entities.ReasonUnknown},
		{PackID: 1001, State: StateUnresolved, Reason: entities.ReasonUnknown},
	}

	storeErr := errors.New("disk I/O error")
	repo := new(MockPriceRecordRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(storeErr).Once()

	_, err := NewWriter(repo).Apply(context.Background(), s, decisions, runAt)

	assert.ErrorIs(t, err, storeErr)
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestWriter_SkipsNonTerminalDecisions(t *testing.T) {
	repo := new(MockPriceRecordRepository)

	summary, err := NewWriter(repo).Apply(context.Background(), basePack().snapshot(), []Decision{
		{PackID: 1000, State: StateNeedsCalculation},
	}, runAt)

	require.NoError(t, err)
	assert.Zero(t, summary.Inserted+summary.Updated)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestBuildRecord_KeepsPreviousPriceWhenPriorIsNull(t *testing.T) {
	existing := &entities.PriceRecord{PackID: 1000, PreviousPrice: int64Ptr(310), Status: entities.PriceStatusUnknown}
	d := &Decision{PackID: 1000, State: StateCalculated, Estimate: &Estimated{Price: 320, Confidence: 0.5, Method: entities.MethodSimilarVMP}}

	record := BuildRecord(d, existing, runAt)

	require.NoError(t, record.Validate())
	assert.Equal(t, int64(310), *record.PreviousPrice)
	assert.Equal(t, int64(320), *record.Price)
	assert.Empty(t, record.MissingReason)
	assert.Nil(t, record.PriceBasisCode)
}
