package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type mockClassRepo struct {
	classes map[string]*models.Class
	deleted []string
	nextID  int
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	out := make([]models.Class, 0, len(m.classes))
	for _, class := range m.classes {
		out = append(out, *class)
	}
	return out, len(out), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		cp := *class
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	for id, class := range m.classes {
		if class.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		m.nextID++
		class.ID = "c" + string(rune('0'+m.nextID))
	}
	if m.classes == nil {
		m.classes = map[string]*models.Class{}
	}
	cp := *class
	m.classes[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	cp := *class
	m.classes[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	delete(m.classes, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockClassMembershipRepo struct {
	items   map[string]*models.ClassMembership
	created []models.ClassMembership
	removed []string
}

func (m *mockClassMembershipRepo) FindByID(ctx context.Context, id string) (*models.ClassMembership, error) {
	if membership, ok := m.items[id]; ok {
		cp := *membership
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassMembershipRepo) ListByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error) {
	var out []models.ClassMemberDetail
	for _, membership := range m.items {
		if membership.ClassID == classID {
			out = append(out, models.ClassMemberDetail{ClassMembership: *membership})
		}
	}
	return out, nil
}

func (m *mockClassMembershipRepo) Exists(ctx context.Context, classID, userID string) (bool, error) {
	for _, membership := range m.items {
		if membership.ClassID == classID && membership.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassMembershipRepo) Create(ctx context.Context, membership *models.ClassMembership) error {
	if membership.ID == "" {
		membership.ID = "m" + membership.UserID
	}
	if m.items == nil {
		m.items = map[string]*models.ClassMembership{}
	}
	cp := *membership
	m.items[membership.ID] = &cp
	m.created = append(m.created, cp)
	return nil
}

func (m *mockClassMembershipRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.removed = append(m.removed, id)
	return nil
}

func newClassService(repo *mockClassRepo, memberships *mockClassMembershipRepo) *ClassService {
	return NewClassService(repo, memberships, sessionUsers(), nil, validator.New(), zap.NewNop())
}

func TestClassCreateEnrollsTeacher(t *testing.T) {
	repo := &mockClassRepo{}
	memberships := &mockClassMembershipRepo{}
	svc := newClassService(repo, memberships)

	class, err := svc.Create(context.Background(), CreateClassRequest{
		Name:      "Matematica 7A",
		Subject:   "Matematica",
		CreatedBy: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", class.CreatedBy)

	require.Len(t, memberships.created, 1)
	assert.Equal(t, class.ID, memberships.created[0].ClassID)
	assert.Equal(t, "t1", memberships.created[0].UserID)
	assert.Equal(t, models.RoleTeacher, memberships.created[0].Role)
}

func TestClassCreateRejectsStudent(t *testing.T) {
	svc := newClassService(&mockClassRepo{}, &mockClassMembershipRepo{})

	_, err := svc.Create(context.Background(), CreateClassRequest{Name: "Historia 8B", CreatedBy: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)
}

func TestClassCreateDuplicateName(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Matematica 7A", CreatedBy: "t1"},
	}}
	svc := newClassService(repo, &mockClassMembershipRepo{})

	_, err := svc.Create(context.Background(), CreateClassRequest{Name: "Matematica 7A", CreatedBy: "t1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClassUpdateKeepsOwnName(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Matematica 7A", CreatedBy: "t1"},
	}}
	svc := newClassService(repo, &mockClassMembershipRepo{})

	class, err := svc.Update(context.Background(), "c1", UpdateClassRequest{Name: "Matematica 7A", Subject: "Algebra"})
	require.NoError(t, err)
	assert.Equal(t, "Algebra", class.Subject)
}

func TestClassGetUnknown(t *testing.T) {
	svc := newClassService(&mockClassRepo{}, &mockClassMembershipRepo{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassAddMemberUsesPlatformRole(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Matematica 7A", CreatedBy: "t1"},
	}}
	memberships := &mockClassMembershipRepo{}
	svc := newClassService(repo, memberships)

	membership, err := svc.AddMember(context.Background(), "c1", AddMemberRequest{UserID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, membership.Role)
	assert.Equal(t, "c1", membership.ClassID)
}

func TestClassAddMemberDuplicate(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Matematica 7A", CreatedBy: "t1"},
	}}
	memberships := &mockClassMembershipRepo{items: map[string]*models.ClassMembership{
		"m1": {ID: "m1", ClassID: "c1", UserID: "s1", Role: models.RoleStudent},
	}}
	svc := newClassService(repo, memberships)

	_, err := svc.AddMember(context.Background(), "c1", AddMemberRequest{UserID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClassAddMemberUnknownUser(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Matematica 7A", CreatedBy: "t1"},
	}}
	svc := newClassService(repo, &mockClassMembershipRepo{})

	_, err := svc.AddMember(context.Background(), "c1", AddMemberRequest{UserID: "nobody"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassRemoveMemberWrongClass(t *testing.T) {
	memberships := &mockClassMembershipRepo{items: map[string]*models.ClassMembership{
		"m1": {ID: "m1", ClassID: "c2", UserID: "s1", Role: models.RoleStudent},
	}}
	svc := newClassService(&mockClassRepo{}, memberships)

	err := svc.RemoveMember(context.Background(), "c1", "m1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, memberships.removed)
}

func TestClassRemoveMember(t *testing.T) {
	memberships := &mockClassMembershipRepo{items: map[string]*models.ClassMembership{
		"m1": {ID: "m1", ClassID: "c1", UserID: "s1", Role: models.RoleStudent},
	}}
	svc := newClassService(&mockClassRepo{}, memberships)

	require.NoError(t, svc.RemoveMember(context.Background(), "c1", "m1"))
	assert.Equal(t, []string{"m1"}, memberships.removed)
}
