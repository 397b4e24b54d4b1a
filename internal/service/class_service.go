package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type membershipRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassMembership, error)
	ListByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error)
	Exists(ctx context.Context, classID, userID string) (bool, error)
	Create(ctx context.Context, membership *models.ClassMembership) error
	Delete(ctx context.Context, id string) error
}

type classUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateClassRequest describes class creation.
type CreateClassRequest struct {
	Name        string `json:"name" validate:"required"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	CreatedBy   string `json:"-"`
}

// UpdateClassRequest describes class updates.
type UpdateClassRequest struct {
	Name        string `json:"name" validate:"required"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// AddMemberRequest enrolls a user into a class.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// ClassService manages classes and their rosters.
type ClassService struct {
	repo        classRepository
	memberships membershipRepository
	users       classUserReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, memberships membershipRepository, users classUserReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, memberships: memberships, users: users, cache: cache, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classes, pagination, nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a class owned by the creating teacher, who is also
// enrolled as the teacher member of the new roster.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	creator, err := s.users.FindByID(ctx, req.CreatedBy)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load creator")
	}
	if creator == nil || creator.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "only teachers can create classes")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class name already in use")
	}

	class := &models.Class{
		Name:        req.Name,
		Subject:     req.Subject,
		Description: req.Description,
		CreatedBy:   creator.ID,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	membership := &models.ClassMembership{ClassID: class.ID, UserID: creator.ID, Role: models.RoleTeacher}
	if err := s.memberships.Create(ctx, membership); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll class teacher")
	}

	s.invalidateSummaries(ctx)
	return class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class name already in use")
	}

	class.Name = req.Name
	class.Subject = req.Subject
	class.Description = req.Description
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}

	s.invalidateSummaries(ctx)
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.invalidateSummaries(ctx)
	return nil
}

// Members lists the roster of a class.
func (s *ClassService) Members(ctx context.Context, classID string) ([]models.ClassMemberDetail, error) {
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	members, err := s.memberships.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

// AddMember enrolls a user into the class roster with the role the user
// holds on the platform.
func (s *ClassService) AddMember(ctx context.Context, classID string, req AddMemberRequest) (*models.ClassMembership, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	exists, err := s.memberships.Exists(ctx, classID, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already in class")
	}

	membership := &models.ClassMembership{ClassID: classID, UserID: user.ID, Role: user.Role}
	if err := s.memberships.Create(ctx, membership); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}

	s.invalidateSummaries(ctx)
	return membership, nil
}

// RemoveMember removes a membership from a class roster.
func (s *ClassService) RemoveMember(ctx context.Context, classID, memberID string) error {
	membership, err := s.memberships.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "membership not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if membership.ClassID != classID {
		return appErrors.Clone(appErrors.ErrNotFound, "membership not found in class")
	}
	if err := s.memberships.Delete(ctx, memberID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove member")
	}
	s.invalidateSummaries(ctx)
	return nil
}

// invalidateSummaries drops cached metrics that depend on rosters.
func (s *ClassService) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "metrics:*"); err != nil {
		s.logger.Warn("invalidate metrics cache", zap.Error(err))
	}
}
