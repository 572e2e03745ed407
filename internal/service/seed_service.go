package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/repository"
)

// SeedService provisions demo records for local development environments.
type SeedService interface {
	SeedDemoData(ctx context.Context) error
}

type seedService struct {
	students   repository.StudentRepository
	faculty    repository.FacultyRepository
	activities repository.ActivityRepository
	logger     zerolog.Logger
	now        func() time.Time
}

// NewSeedService constructs a seeding service.
func NewSeedService(students repository.StudentRepository, faculty repository.FacultyRepository, activities repository.ActivityRepository, logger zerolog.Logger) SeedService {
	return &seedService{
		students:   students,
		faculty:    faculty,
		activities: activities,
		logger:     logger.With().Str("component", "seed_service").Logger(),
		now:        time.Now,
	}
}

func (s *seedService) SeedDemoData(ctx context.Context) error {
	demoStudents := []models.Student{
		{Name: "Dewi Lestari", Email: "dewi.lestari@campus.test", Department: "Informatics"},
		{Name: "Bima Pratama", Email: "bima.pratama@campus.test", Department: "Electrical Engineering"},
	}
	for i := range demoStudents {
		if err := s.students.UpsertByEmail(ctx, &demoStudents[i]); err != nil {
			return err
		}
	}

	demoFaculty := []models.Faculty{
		{Name: "Dr. Ratna Sari", Email: "ratna.sari@campus.test", Department: "Informatics"},
		{Name: "Prof. Agus Wibowo", Email: "agus.wibowo@campus.test", Department: "Electrical Engineering"},
	}
	for i := range demoFaculty {
		if err := s.faculty.UpsertByEmail(ctx, &demoFaculty[i]); err != nil {
			return err
		}
	}

	existing, _, err := s.activities.List(ctx, repository.ActivityFilter{PageSize: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.logger.Debug().Msg("activities already present, skipping demo activities")
		return nil
	}

	start := s.now().AddDate(0, -1, 0)
	end := start.AddDate(0, 0, 2)
	hours := 16.0
	activity := models.Activity{
		StudentID:     demoStudents[0].ID,
		Title:         "National Data Science Bootcamp",
		Description:   "Two-day intensive bootcamp covering practical machine learning workflows.",
		Category:      "workshop",
		Status:        models.ActivityStatusDraft,
		StartDate:     start,
		EndDate:       &end,
		DurationHours: &hours,
		Location:      "Jakarta Convention Center",
		Organizer:     "Komunitas Data Indonesia",
		Skills:        datatypes.NewJSONSlice([]string{"python", "machine-learning"}),
		Tags:          datatypes.NewJSONSlice([]string{"bootcamp", "data-science"}),
	}
	if err := s.activities.Create(ctx, &activity); err != nil {
		return err
	}

	s.logger.Info().
		Int("students", len(demoStudents)).
		Int("faculty", len(demoFaculty)).
		Msg("demo data seeded")

	return nil
}
