package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/repository"
)

type memEventRepo struct {
	events []models.WorkflowEvent
}

func (m *memEventRepo) Create(ctx context.Context, event *models.WorkflowEvent) error {
	event.ID = uint(len(m.events) + 1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	m.events = append(m.events, *event)
	return nil
}

func (m *memEventRepo) List(ctx context.Context, filter repository.WorkflowEventFilter) ([]models.WorkflowEvent, int64, error) {
	filtered := make([]models.WorkflowEvent, 0, len(m.events))
	for _, event := range m.events {
		if filter.ActorID != nil && event.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != "" && event.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && event.EntityType != filter.EntityType {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered, int64(len(filtered)), nil
}

func (m *memEventRepo) ListRecent(ctx context.Context, filter repository.WorkflowEventRecentFilter) ([]models.WorkflowEvent, int64, error) {
	filtered := make([]models.WorkflowEvent, 0, len(m.events))
	for _, event := range m.events {
		if event.CreatedAt.Before(filter.Since) || event.CreatedAt.After(filter.Until) {
			continue
		}
		if filter.ActorID != nil && event.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != "" && event.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && event.EntityType != filter.EntityType {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered, int64(len(filtered)), nil
}

func TestWorkflowEventServiceRecordMasksSensitiveMetadata(t *testing.T) {
	repo := &memEventRepo{}
	svc := NewWorkflowEventService(repo, nil, time.Minute, testLogger())

	entityID := uint(5)
	resp, err := svc.Record(context.Background(), WorkflowEventEntry{
		ActorID:    1,
		ActorRole:  "Faculty",
		Action:     "Approval.Approved",
		EntityType: "Approval",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"student_email": "dewi@campus.test",
			"access_token":  "secret",
			"activity_id":   12,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "faculty", resp.ActorRole)
	require.Equal(t, "approval.approved", resp.Action)
	require.Equal(t, "approval", resp.EntityType)
	require.Equal(t, "***", resp.Metadata["student_email"])
	require.Equal(t, "***", resp.Metadata["access_token"])
	require.EqualValues(t, 12, resp.Metadata["activity_id"])
}

func TestWorkflowEventServiceRecordValidation(t *testing.T) {
	repo := &memEventRepo{}
	svc := NewWorkflowEventService(repo, nil, time.Minute, testLogger())

	_, err := svc.Record(context.Background(), WorkflowEventEntry{EntityType: "approval"})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), WorkflowEventEntry{Action: "approval.approved"})
	require.Error(t, err)
}

func TestWorkflowEventServiceListRecentWindowAndCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	repo := &memEventRepo{events: []models.WorkflowEvent{
		{ID: 1, ActorID: 1, ActorRole: "student", Action: "activity.submitted", EntityType: "activity", CreatedAt: time.Now().Add(-time.Hour)},
		{ID: 2, ActorID: 2, ActorRole: "faculty", Action: "approval.approved", EntityType: "approval", CreatedAt: time.Now().Add(-48 * time.Hour)},
	}}
	svc := NewWorkflowEventService(repo, redisClient, time.Minute, testLogger())

	resp, err := svc.ListRecent(context.Background(), dto.WorkflowEventListRequest{})
	require.NoError(t, err)
	require.False(t, resp.CacheHit)
	require.Len(t, resp.Items, 1, "events older than the window are excluded")
	require.Equal(t, "activity.submitted", resp.Items[0].Action)

	// mutate repo to ensure cache keeps previous result
	repo.events = nil

	cached, err := svc.ListRecent(context.Background(), dto.WorkflowEventListRequest{})
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Len(t, cached.Items, 1)
}

func TestWorkflowEventServiceListFilters(t *testing.T) {
	repo := &memEventRepo{events: []models.WorkflowEvent{
		{ID: 1, ActorID: 1, ActorRole: "student", Action: "activity.created", EntityType: "activity", CreatedAt: time.Now()},
		{ID: 2, ActorID: 2, ActorRole: "faculty", Action: "approval.approved", EntityType: "approval", CreatedAt: time.Now()},
	}}
	svc := NewWorkflowEventService(repo, nil, time.Minute, testLogger())

	resp, err := svc.List(context.Background(), dto.WorkflowEventListRequest{EntityType: "approval"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, uint(2), resp.Items[0].ActorID)

	byActor, err := svc.List(context.Background(), dto.WorkflowEventListRequest{ActorID: 1})
	require.NoError(t, err)
	require.Len(t, byActor.Items, 1)
	require.Equal(t, "activity.created", byActor.Items[0].Action)
}
