package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/logging"
	"github.com/school-system/exam-results/internal/models"
)

// SetupStore is what school setup needs on top of grading scale access.
type SetupStore interface {
	ListSchools(ctx context.Context) ([]models.School, error)
	ActiveGradingScale(ctx context.Context, schoolID uuid.UUID) (*models.GradingScale, error)
	SaveGradingScale(ctx context.Context, scale *models.GradingScale) error
}

type SchoolSetupService struct {
	store SetupStore
}

func NewSchoolSetupService(store SetupStore) *SchoolSetupService {
	return &SchoolSetupService{store: store}
}

// SeedGradingScales gives every school without a grading scale the default
// percentage scale. It returns the number of schools seeded.
func (s *SchoolSetupService) SeedGradingScales(ctx context.Context) (int, error) {
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		return 0, err
	}

	seeded := 0
	for _, school := range schools {
		ok, err := s.seedSchool(ctx, school.ID)
		if err != nil {
			return seeded, fmt.Errorf("failed to seed grading scale for %s: %w", school.Name, err)
		}
		if ok {
			seeded++
		}
	}
	return seeded, nil
}

func (s *SchoolSetupService) seedSchool(ctx context.Context, schoolID uuid.UUID) (bool, error) {
	_, err := s.store.ActiveGradingScale(ctx, schoolID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	def := grading.DefaultScale()
	scale := &models.GradingScale{
		SchoolID:    schoolID,
		Name:        def.Name,
		IsDefault:   true,
		Ranges:      def.Ranges,
		RuleVersion: def.Fingerprint(),
	}
	if err := s.store.SaveGradingScale(ctx, scale); err != nil {
		return false, err
	}
	logging.FromContext(ctx).Info("seeded default grading scale", "school_id", schoolID, "rule_version", scale.RuleVersion)
	return true, nil
}
