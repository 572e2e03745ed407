package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/models"
)

// FacultyRepository provides access to faculty records.
type FacultyRepository interface {
	GetByID(ctx context.Context, id uint) (models.Faculty, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	UpsertByEmail(ctx context.Context, faculty *models.Faculty) error
}

type facultyRepository struct {
	db *gorm.DB
}

// NewFacultyRepository constructs a faculty repository.
func NewFacultyRepository(db *gorm.DB) FacultyRepository {
	return &facultyRepository{db: db}
}

func (r *facultyRepository) GetByID(ctx context.Context, id uint) (models.Faculty, error) {
	var faculty models.Faculty
	if err := r.db.WithContext(ctx).First(&faculty, id).Error; err != nil {
		return models.Faculty{}, err
	}

	return faculty, nil
}

func (r *facultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	return r.db.WithContext(ctx).Create(faculty).Error
}

func (r *facultyRepository) UpsertByEmail(ctx context.Context, faculty *models.Faculty) error {
	return r.db.WithContext(ctx).
		Where("email = ?", faculty.Email).
		FirstOrCreate(faculty).Error
}
