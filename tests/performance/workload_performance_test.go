package performance_test

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/handler"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/repository"
	"github.com/noah-isme/satria-go-api/internal/service"
)

func setupWorkloadPerformanceApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Faculty{}, &models.Activity{}, &models.FacultyApproval{}))

	faculty := models.Faculty{Name: "Dr. Ratna", Email: "ratna@example.com", Department: "Informatics"}
	require.NoError(t, db.Create(&faculty).Error)

	// Seed dataset
	now := time.Now().UTC()
	statuses := []string{
		models.ApprovalStatusPending,
		models.ApprovalStatusUnderReview,
		models.ApprovalStatusApproved,
		models.ApprovalStatusRejected,
	}
	categories := []string{"workshop", "seminar", "research", "volunteering"}
	duration := 60
	score := 4
	for i := 0; i < 200; i++ {
		status := statuses[i%len(statuses)]
		approval := models.FacultyApproval{
			ActivityID:  uint(i + 1),
			StudentID:   uint(i%20 + 1),
			FacultyID:   &faculty.ID,
			AssignedTo:  &faculty.ID,
			Department:  "Informatics",
			Category:    categories[i%len(categories)],
			Status:      status,
			Stage:       models.StageForStatus(status),
			SubmittedAt: now.Add(-time.Duration(i) * time.Hour),
			Priority:    "normal",
			Complexity:  "standard",
		}
		if status == models.ApprovalStatusApproved || status == models.ApprovalStatusRejected {
			completed := now.Add(-time.Duration(i) * time.Minute)
			approval.CompletedAt = &completed
			approval.ReviewedAt = &completed
			approval.ReviewDurationMinutes = &duration
			approval.Scoring.OverallScore = &score
		}
		require.NoError(t, db.Create(&approval).Error)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	approvalRepo := repository.NewApprovalRepository(db)
	workloadService := service.NewWorkloadService(approvalRepo, validate, nil, 0, zerolog.Nop())
	workloadHandler := handler.NewWorkloadHandler(workloadService, zerolog.Nop())

	app := fiber.New()
	workloadHandler.Register(app.Group("/api/v1/faculty"))

	return app
}

func TestFacultyWorkloadP95LatencyBelow250ms(t *testing.T) {
	app := setupWorkloadPerformanceApp(t)

	runs := 40
	durations := make([]time.Duration, 0, runs)

	for i := 0; i < runs; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/faculty/1/workload", nil)
		start := time.Now()
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	index := int(math.Ceil(0.95*float64(len(durations)))) - 1
	if index < 0 {
		index = 0
	}
	p95 := durations[index]

	require.LessOrEqual(t, p95, 250*time.Millisecond)
}
