package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
	"github.com/classboard/classboard-api/pkg/storage"
)

type attachmentActivityStore interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	Update(ctx context.Context, activity *models.Activity) error
}

type attachmentSubmissionStore interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	UpdateAttachment(ctx context.Context, id, path string) error
}

// Attachment describes a stored file plus a signed download token. OwnerType
// is "activity" or "submission".
type Attachment struct {
	OwnerID   string    `json:"owner_id"`
	OwnerType string    `json:"owner_type"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AttachmentService stores activity and submission files on disk and hands
// out signed download tokens so the files can be fetched without a bearer
// token.
type AttachmentService struct {
	activities  attachmentActivityStore
	submissions attachmentSubmissionStore
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	maxFileSize int64
	logger      *zap.Logger
}

// NewAttachmentService constructs AttachmentService.
func NewAttachmentService(activities attachmentActivityStore, submissions attachmentSubmissionStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, maxFileSize int64, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{activities: activities, submissions: submissions, store: store, signer: signer, maxFileSize: maxFileSize, logger: logger}
}

// Upload stores the file, records its path on the activity and returns a
// signed token. A previously attached file is replaced and removed from disk.
func (s *AttachmentService) Upload(ctx context.Context, activityID, fileName string, size int64, r io.Reader) (*Attachment, error) {
	if fileName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxFileSize))
	}

	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	relPath := filepath.Join("activities", activityID, uuid.NewString()+"-"+sanitizeFileName(fileName))
	if _, err := s.store.SaveStream(relPath, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}

	previous := activity.Attachment
	activity.Attachment = &relPath
	if err := s.activities.Update(ctx, activity); err != nil {
		_ = s.store.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}
	if previous != nil && *previous != relPath {
		if err := s.store.Delete(*previous); err != nil {
			s.logger.Warn("remove replaced attachment", zap.String("path", *previous), zap.Error(err))
		}
	}

	token, expiresAt, err := s.signer.Generate(activityID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attachment url")
	}
	return &Attachment{OwnerID: activityID, OwnerType: "activity", FileName: fileName, Path: relPath, Token: token, ExpiresAt: expiresAt}, nil
}

// UploadForSubmission stores the file, records its path on the submission and
// returns a signed token. A previously attached file is replaced and removed
// from disk.
func (s *AttachmentService) UploadForSubmission(ctx context.Context, submissionID, fileName string, size int64, r io.Reader) (*Attachment, error) {
	if fileName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxFileSize))
	}

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	relPath := filepath.Join("submissions", submissionID, uuid.NewString()+"-"+sanitizeFileName(fileName))
	if _, err := s.store.SaveStream(relPath, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}

	previous := submission.Attachment
	if err := s.submissions.UpdateAttachment(ctx, submissionID, relPath); err != nil {
		_ = s.store.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}
	if previous != nil && *previous != relPath {
		if err := s.store.Delete(*previous); err != nil {
			s.logger.Warn("remove replaced attachment", zap.String("path", *previous), zap.Error(err))
		}
	}

	token, expiresAt, err := s.signer.Generate(submissionID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attachment url")
	}
	return &Attachment{OwnerID: submissionID, OwnerType: "submission", FileName: fileName, Path: relPath, Token: token, ExpiresAt: expiresAt}, nil
}

// SignedURL issues a fresh download token for the activity's attachment.
func (s *AttachmentService) SignedURL(ctx context.Context, activityID string) (*Attachment, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if activity.Attachment == nil || *activity.Attachment == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity has no attachment")
	}

	token, expiresAt, err := s.signer.Generate(activityID, *activity.Attachment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attachment url")
	}
	return &Attachment{
		OwnerID:   activityID,
		OwnerType: "activity",
		FileName:  filepath.Base(*activity.Attachment),
		Path:      *activity.Attachment,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// SignedURLForSubmission issues a fresh download token for the submission's
// attachment.
func (s *AttachmentService) SignedURLForSubmission(ctx context.Context, submissionID string) (*Attachment, error) {
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if submission.Attachment == nil || *submission.Attachment == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission has no attachment")
	}

	token, expiresAt, err := s.signer.Generate(submissionID, *submission.Attachment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attachment url")
	}
	return &Attachment{
		OwnerID:   submissionID,
		OwnerType: "submission",
		FileName:  filepath.Base(*submission.Attachment),
		Path:      *submission.Attachment,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a signed token and returns a handle to the stored file plus
// its content type.
func (s *AttachmentService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "attachment file not found")
	}
	contentType := mime.TypeByExtension(filepath.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return file, contentType, nil
}

// sanitizeFileName strips path components and characters that would break
// the on-disk layout.
func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		name = "file"
	}
	return name
}
