package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/models"
)

func newTestActivityService(activities *memActivityRepo, approvals *memApprovalRepo, notifier *capturingNotifier) ActivityService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	students := &memStudentRepo{students: map[uint]models.Student{
		1: {ID: 1, Name: "Dewi Lestari", Email: "dewi@campus.test", Department: "Informatics"},
	}}
	var reviewNotifier ReviewNotifier
	if notifier != nil {
		reviewNotifier = notifier
	}
	return NewActivityService(activities, approvals, students, validate, nil, nil, reviewNotifier, testLogger())
}

func seedDraft(t *testing.T, activities *memActivityRepo, studentID uint) models.Activity {
	t.Helper()
	activity := models.Activity{
		StudentID:   studentID,
		Title:       "Robotics Competition",
		Description: "Regional robotics competition entry",
		Category:    "competition",
		Status:      models.ActivityStatusDraft,
		StartDate:   time.Now().AddDate(0, 0, -7),
	}
	require.NoError(t, activities.Create(context.Background(), &activity))
	return activity
}

func TestActivityServiceCreateStartsAsDraft(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	resp, err := svc.Create(context.Background(), Actor{ID: 1, Role: RoleStudent}, dto.ActivityCreateRequest{
		Title:       "Data Science Bootcamp",
		Description: "Two-day intensive bootcamp",
		Category:    "workshop",
		StartDate:   time.Now().AddDate(0, 0, -3),
	})
	require.NoError(t, err)
	require.Equal(t, models.ActivityStatusDraft, resp.Status)
	require.Equal(t, uint(1), resp.StudentID)
	require.Equal(t, 3, resp.Impact.Academic, "impact axes default to the midpoint")
}

func TestActivityServiceCreateRejectsEndBeforeStart(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err := svc.Create(context.Background(), Actor{ID: 1, Role: RoleStudent}, dto.ActivityCreateRequest{
		Title:       "Backwards Event",
		Description: "End precedes start",
		Category:    "seminar",
		StartDate:   start,
		EndDate:     &end,
	})
	require.ErrorIs(t, err, ErrEndBeforeStart)
}

func TestActivityServiceSubmitCreatesApprovalRecord(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	notifier := &capturingNotifier{}
	svc := newTestActivityService(activities, approvals, notifier)

	draft := seedDraft(t, activities, 1)

	resp, err := svc.Submit(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent})
	require.NoError(t, err)
	require.Equal(t, models.ActivityStatusPending, resp.Status)

	approval, err := approvals.GetByActivityID(context.Background(), draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusPending, approval.Status)
	require.Equal(t, models.StageSubmitted, approval.Stage)
	require.Equal(t, "Informatics", approval.Department)
	require.Len(t, []models.ReviewHistoryEntry(approval.History), 1)
	require.Equal(t, models.HistoryActionSubmitted, approval.History[0].Action)

	require.True(t, hasAction(notifier.actions(), models.HistoryActionSubmitted))
}

func TestActivityServiceSubmitRequiresDraft(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	draft := seedDraft(t, activities, 1)
	_, err := svc.Submit(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestActivityServiceResubmitReusesApprovalRecord(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	draft := seedDraft(t, activities, 1)
	_, err := svc.Submit(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent})
	require.NoError(t, err)

	// Reviewer returns the record; the student sees a draft again.
	approval, err := approvals.GetByActivityID(context.Background(), draft.ID)
	require.NoError(t, err)
	approval.SetStatus(models.ApprovalStatusRequiresChanges)
	require.NoError(t, approvals.UpdateCAS(context.Background(), &approval))

	stored, err := activities.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	stored.Status = models.ActivityStatusDraft
	require.NoError(t, activities.UpdateCAS(context.Background(), &stored))

	_, err = svc.Submit(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent})
	require.NoError(t, err)

	resubmitted, err := approvals.GetByActivityID(context.Background(), draft.ID)
	require.NoError(t, err)
	require.Equal(t, approval.ID, resubmitted.ID, "resubmission must reuse the same approval record")
	require.Equal(t, models.ApprovalStatusPending, resubmitted.Status)
	require.Nil(t, resubmitted.ReviewedAt)
	require.Nil(t, resubmitted.CompletedAt)
	history := []models.ReviewHistoryEntry(resubmitted.History)
	require.Equal(t, models.HistoryActionResubmitted, history[len(history)-1].Action)
}

func TestActivityServiceUpdateGuards(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	draft := seedDraft(t, activities, 1)
	title := "Updated Title"

	_, err := svc.Update(context.Background(), draft.ID, Actor{ID: 2, Role: RoleStudent}, dto.ActivityUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrNotOwner)

	stored, err := activities.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	stored.Status = models.ActivityStatusApproved
	require.NoError(t, activities.UpdateCAS(context.Background(), &stored))

	_, err = svc.Update(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent}, dto.ActivityUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrActivityLocked)

	stored, err = activities.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	stored.Status = models.ActivityStatusPending
	require.NoError(t, activities.UpdateCAS(context.Background(), &stored))

	_, err = svc.Update(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent}, dto.ActivityUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestActivityServiceUpdateRejectedResetsToDraft(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	draft := seedDraft(t, activities, 1)
	stored, err := activities.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	rejecter := uint(9)
	at := time.Now()
	stored.Status = models.ActivityStatusRejected
	stored.RejectedBy = &rejecter
	stored.RejectedAt = &at
	stored.RejectionReason = "insufficient documentation"
	require.NoError(t, activities.UpdateCAS(context.Background(), &stored))

	title := "Reworked Title"
	resp, err := svc.Update(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent}, dto.ActivityUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, models.ActivityStatusDraft, resp.Status)
	require.Nil(t, resp.RejectedBy)
	require.Nil(t, resp.RejectedAt)
	require.Empty(t, resp.RejectionReason)
}

func TestActivityServiceDeleteForbiddenForApproved(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	draft := seedDraft(t, activities, 1)
	stored, err := activities.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	stored.Status = models.ActivityStatusApproved
	require.NoError(t, activities.UpdateCAS(context.Background(), &stored))

	err = svc.Delete(context.Background(), draft.ID, Actor{ID: 1, Role: RoleStudent})
	require.ErrorIs(t, err, ErrActivityLocked)

	err = svc.Delete(context.Background(), draft.ID, Actor{ID: 99, Role: RoleAdmin})
	require.ErrorIs(t, err, ErrActivityLocked, "even admins cannot delete approved records")
}

func TestActivityServiceDeleteByOwnerAndAdmin(t *testing.T) {
	activities := newMemActivityRepo()
	approvals := newMemApprovalRepo(activities)
	svc := newTestActivityService(activities, approvals, nil)

	first := seedDraft(t, activities, 1)
	second := seedDraft(t, activities, 1)

	require.ErrorIs(t, svc.Delete(context.Background(), first.ID, Actor{ID: 2, Role: RoleStudent}), ErrNotOwner)
	require.NoError(t, svc.Delete(context.Background(), first.ID, Actor{ID: 1, Role: RoleStudent}))
	require.NoError(t, svc.Delete(context.Background(), second.ID, Actor{ID: 42, Role: RoleAdmin}))

	_, err := svc.Get(context.Background(), first.ID)
	require.ErrorIs(t, err, ErrActivityNotFound)
}
