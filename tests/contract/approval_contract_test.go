package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/handler"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/service"
)

type stubApprovalService struct {
	response dto.ApprovalResponse
}

func (s stubApprovalService) Get(context.Context, uint) (dto.ApprovalResponse, error) {
	return s.response, nil
}

func (s stubApprovalService) List(context.Context, dto.ApprovalFilter) (dto.ApprovalListResponse, error) {
	return dto.ApprovalListResponse{
		Items:      []dto.ApprovalResponse{s.response},
		Pagination: dto.PaginationMeta{Page: 1, PageSize: 20, TotalItems: 1, TotalPages: 1},
	}, nil
}

func (s stubApprovalService) Assign(context.Context, uint, service.Actor, dto.AssignRequest) (dto.ApprovalResponse, error) {
	return s.response, nil
}

func (s stubApprovalService) StartReview(context.Context, uint, service.Actor, dto.StartReviewRequest) (dto.ApprovalResponse, error) {
	return s.response, nil
}

func (s stubApprovalService) Approve(context.Context, uint, service.Actor, dto.ApproveRequest) (dto.ApprovalResponse, error) {
	return s.response, nil
}

func (s stubApprovalService) Reject(context.Context, uint, service.Actor, dto.RejectRequest) (dto.ApprovalResponse, error) {
	return s.response, nil
}

func (s stubApprovalService) RequestChanges(context.Context, uint, service.Actor, dto.RequestChangesRequest) (dto.ApprovalResponse, error) {
	return s.response, nil
}

func (s stubApprovalService) Escalate(context.Context, uint, service.Actor, dto.EscalateRequest) (dto.ApprovalResponse, error) {
	return s.response, nil
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func sampleApproval() models.FacultyApproval {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	facultyID := uint(7)
	score := 4
	overall := 4
	duration := 95

	approval := models.FacultyApproval{
		ID:                    9,
		ActivityID:            4,
		StudentID:             2,
		FacultyID:             &facultyID,
		AssignedTo:            &facultyID,
		Department:            "Informatics",
		Category:              "volunteering",
		Status:                models.ApprovalStatusApproved,
		Stage:                 models.StageCompleted,
		SubmittedAt:           now.Add(-48 * time.Hour),
		Priority:              "high",
		Complexity:            "standard",
		ReviewDurationMinutes: &duration,
		Scoring: models.ReviewScoring{
			Authenticity:  &score,
			Relevance:     &score,
			Impact:        &score,
			Documentation: &score,
			OverallScore:  &overall,
		},
		CreatedAt: now.Add(-48 * time.Hour),
		UpdatedAt: now,
	}
	reviewedAt := now.Add(-2 * time.Hour)
	approval.ReviewedAt = &reviewedAt
	approval.CompletedAt = &now
	approval.Notifications.StudentNotified = true
	approval.Notifications.StudentNotifiedAt = &now
	approval.AppendHistory(models.ReviewHistoryEntry{
		Action:      "submitted",
		PerformedBy: 2,
		PerformedAt: now.Add(-48 * time.Hour),
		NewStatus:   models.ApprovalStatusPending,
	})
	approval.AppendHistory(models.ReviewHistoryEntry{
		Action:         "approved",
		PerformedBy:    7,
		PerformedAt:    now,
		Notes:          "verified with the hosting organisation",
		PreviousStatus: models.ApprovalStatusUnderReview,
		NewStatus:      models.ApprovalStatusApproved,
	})
	return approval
}

func TestApprovalContract(t *testing.T) {
	schema := compileSchema(t, "approval.schema.json")

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	serviceStub := stubApprovalService{response: dto.NewApprovalResponse(sampleApproval(), now)}
	approvalHandler := handler.NewApprovalHandler(serviceStub, zerolog.Nop())

	app := fiber.New()
	approvalHandler.Register(app.Group("/api/v1/approvals"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/approvals/9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
