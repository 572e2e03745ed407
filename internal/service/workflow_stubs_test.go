package service

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// memActivityRepo is an in-memory ActivityRepository with the same
// version-check semantics as the real one.
type memActivityRepo struct {
	mu     sync.Mutex
	nextID uint
	items  map[uint]models.Activity
}

func newMemActivityRepo() *memActivityRepo {
	return &memActivityRepo{nextID: 1, items: map[uint]models.Activity{}}
}

func (m *memActivityRepo) List(ctx context.Context, filter repository.ActivityFilter) ([]models.Activity, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Activity, 0, len(m.items))
	for _, item := range m.items {
		if filter.StudentID != nil && item.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && item.Category != *filter.Category {
			continue
		}
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (m *memActivityRepo) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return models.Activity{}, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (m *memActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	activity.ID = m.nextID
	m.nextID++
	m.items[activity.ID] = *activity
	return nil
}

func (m *memActivityRepo) UpdateCAS(ctx context.Context, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCASLocked(activity)
}

func (m *memActivityRepo) updateCASLocked(activity *models.Activity) error {
	current, ok := m.items[activity.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if current.Version != activity.Version {
		return repository.ErrVersionConflict
	}
	activity.Version++
	m.items[activity.ID] = *activity
	return nil
}

func (m *memActivityRepo) DeleteWithApproval(ctx context.Context, activityID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, activityID)
	return nil
}

// memApprovalRepo is an in-memory ApprovalRepository sharing CAS semantics
// with the real implementation. SavePair and CreateWithActivity mutate the
// linked activity through the paired memActivityRepo.
type memApprovalRepo struct {
	mu         sync.Mutex
	nextID     uint
	items      map[uint]models.FacultyApproval
	activities *memActivityRepo
}

func newMemApprovalRepo(activities *memActivityRepo) *memApprovalRepo {
	return &memApprovalRepo{nextID: 1, items: map[uint]models.FacultyApproval{}, activities: activities}
}

func (m *memApprovalRepo) List(ctx context.Context, filter repository.ApprovalFilter) ([]models.FacultyApproval, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FacultyApproval, 0, len(m.items))
	for _, item := range m.items {
		if filter.FacultyID != nil && (item.FacultyID == nil || *item.FacultyID != *filter.FacultyID) {
			continue
		}
		if filter.StudentID != nil && item.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && item.Category != *filter.Category {
			continue
		}
		if filter.From != nil && item.SubmittedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && item.SubmittedAt.After(*filter.To) {
			continue
		}
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (m *memApprovalRepo) GetByID(ctx context.Context, id uint) (models.FacultyApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return models.FacultyApproval{}, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (m *memApprovalRepo) GetByActivityID(ctx context.Context, activityID uint) (models.FacultyApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ActivityID == activityID {
			return item, nil
		}
	}
	return models.FacultyApproval{}, gorm.ErrRecordNotFound
}

func (m *memApprovalRepo) Create(ctx context.Context, approval *models.FacultyApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	approval.ID = m.nextID
	m.nextID++
	m.items[approval.ID] = *approval
	return nil
}

func (m *memApprovalRepo) UpdateCAS(ctx context.Context, approval *models.FacultyApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCASLocked(approval)
}

func (m *memApprovalRepo) updateCASLocked(approval *models.FacultyApproval) error {
	current, ok := m.items[approval.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if current.Version != approval.Version {
		return repository.ErrVersionConflict
	}
	approval.Version++
	m.items[approval.ID] = *approval
	return nil
}

func (m *memApprovalRepo) SavePair(ctx context.Context, approval *models.FacultyApproval, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous, existed := m.items[approval.ID]
	if err := m.updateCASLocked(approval); err != nil {
		return err
	}
	if activity != nil {
		m.activities.mu.Lock()
		defer m.activities.mu.Unlock()
		if err := m.activities.updateCASLocked(activity); err != nil {
			// Roll the approval write back, mirroring the transaction.
			approval.Version--
			if existed {
				m.items[approval.ID] = previous
			}
			return err
		}
	}
	return nil
}

func (m *memApprovalRepo) CreateWithActivity(ctx context.Context, approval *models.FacultyApproval, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities.mu.Lock()
	defer m.activities.mu.Unlock()
	if err := m.activities.updateCASLocked(activity); err != nil {
		return err
	}
	approval.ID = m.nextID
	m.nextID++
	m.items[approval.ID] = *approval
	return nil
}

type memStudentRepo struct {
	students map[uint]models.Student
}

func (m *memStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	if student, ok := m.students[id]; ok {
		return student, nil
	}
	return models.Student{}, gorm.ErrRecordNotFound
}

func (m *memStudentRepo) Create(ctx context.Context, student *models.Student) error {
	return nil
}

func (m *memStudentRepo) UpsertByEmail(ctx context.Context, student *models.Student) error {
	return nil
}

type memFacultyRepo struct {
	faculty map[uint]models.Faculty
}

func (m *memFacultyRepo) GetByID(ctx context.Context, id uint) (models.Faculty, error) {
	if f, ok := m.faculty[id]; ok {
		return f, nil
	}
	return models.Faculty{}, gorm.ErrRecordNotFound
}

func (m *memFacultyRepo) Create(ctx context.Context, faculty *models.Faculty) error {
	return nil
}

func (m *memFacultyRepo) UpsertByEmail(ctx context.Context, faculty *models.Faculty) error {
	return nil
}

// capturingNotifier records every transition it is handed.
type capturingNotifier struct {
	mu      sync.Mutex
	entries []models.ReviewHistoryEntry
}

func (n *capturingNotifier) NotifyTransition(ctx context.Context, approval models.FacultyApproval, entry models.ReviewHistoryEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, entry)
}

func (n *capturingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	actions := make([]string, 0, len(n.entries))
	for _, e := range n.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func hasAction(actions []string, want string) bool {
	for _, a := range actions {
		if strings.EqualFold(a, want) {
			return true
		}
	}
	return false
}
