package pricing

import (
	"fmt"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
)

// Classifier explains why an unpriced pack has no price. Checks run in a fixed
// order and the first match wins.
type Classifier struct {
	reimbursable  map[int64]struct{}
	availableCode int64
}

// NewClassifier builds a classifier for the given reimbursable status codes and
// the availability-restriction code meaning "available"
func NewClassifier(reimbursableCodes []int, availableCode int) *Classifier {
	set := make(map[int64]struct{}, len(reimbursableCodes))
	for _, code := range reimbursableCodes {
		set[int64(code)] = struct{}{}
	}
	return &Classifier{reimbursable: set, availableCode: int64(availableCode)}
}

// Classify returns the missing reason for a pack. ReasonUnknown means the
// omission is unexplained and the pack should be estimated.
func (c *Classifier) Classify(s *Snapshot, packID int64) (entities.MissingReason, error) {
	pack := s.Pack(packID)
	if pack == nil {
		return "", apperrors.NewNotFoundError(packMessage(packID, "does not exist"))
	}
	product := s.Product(pack.ProductID)
	if product == nil {
		return "", apperrors.NewValidationError(packMessage(packID, "has no actual product"))
	}

	if info := s.PackInfo(packID); info != nil {
		if _, ok := c.reimbursable[info.ReimbursementStatus]; !ok {
			return entities.ReasonNonReimbursable, nil
		}
	}
	if pack.Discontinued() || product.Discontinued() {
		return entities.ReasonDiscontinued, nil
	}
	if s.PrescribingInfo(packID).IsHospitalOnly() {
		return entities.ReasonHospitalOnly, nil
	}
	if product.AvailabilityCode != c.availableCode {
		return entities.ReasonNotAvailable, nil
	}
	return entities.ReasonUnknown, nil
}

func packMessage(packID int64, msg string) string {
	return fmt.Sprintf("pack %d %s", packID, msg)
}
