package services

import (
	"context"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
)

// PriceAnalysisService reports price coverage for a store
type PriceAnalysisService struct {
	open StoreOpener
}

// NewPriceAnalysisService creates a new price analysis service
func NewPriceAnalysisService(open StoreOpener) *PriceAnalysisService {
	return &PriceAnalysisService{open: open}
}

// Analyse summarises the store at location
func (s *PriceAnalysisService) Analyse(ctx context.Context, location string) (*entities.PriceAnalysis, error) {
	store, err := s.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Analysis().Analyse(ctx)
}
