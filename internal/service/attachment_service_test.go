package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
	"github.com/classboard/classboard-api/pkg/storage"
)

type mockAttachmentActivityStore struct {
	items map[string]*models.Activity
}

func (m *mockAttachmentActivityStore) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if activity, ok := m.items[id]; ok {
		cp := *activity
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttachmentActivityStore) Update(ctx context.Context, activity *models.Activity) error {
	cp := *activity
	m.items[activity.ID] = &cp
	return nil
}

type mockAttachmentSubmissionStore struct {
	items     map[string]*models.Submission
	updateErr error
}

func (m *mockAttachmentSubmissionStore) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if submission, ok := m.items[id]; ok {
		cp := *submission
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttachmentSubmissionStore) UpdateAttachment(ctx context.Context, id, path string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.items[id].Attachment = &path
	return nil
}

func newAttachmentService(t *testing.T, activities *mockAttachmentActivityStore, submissions *mockAttachmentSubmissionStore) *AttachmentService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewAttachmentService(activities, submissions, store, signer, 1024, zap.NewNop())
}

func TestAttachmentUploadAndOpen(t *testing.T) {
	activities := &mockAttachmentActivityStore{items: map[string]*models.Activity{
		"a1": {ID: "a1", ClassID: "c1", Title: "Fractions worksheet"},
	}}
	svc := newAttachmentService(t, activities, &mockAttachmentSubmissionStore{})

	attachment, err := svc.Upload(context.Background(), "a1", "notes.txt", 11, strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "a1", attachment.OwnerID)
	assert.Equal(t, "activity", attachment.OwnerType)
	assert.NotEmpty(t, attachment.Token)
	require.NotNil(t, activities.items["a1"].Attachment)
	assert.Equal(t, attachment.Path, *activities.items["a1"].Attachment)

	file, contentType, err := svc.Open(attachment.Token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.Equal(t, "text/plain; charset=utf-8", contentType)
}

func TestAttachmentUploadUnknownActivity(t *testing.T) {
	svc := newAttachmentService(t, &mockAttachmentActivityStore{}, &mockAttachmentSubmissionStore{})

	_, err := svc.Upload(context.Background(), "missing", "notes.txt", 5, strings.NewReader("hello"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttachmentUploadTooLarge(t *testing.T) {
	activities := &mockAttachmentActivityStore{items: map[string]*models.Activity{"a1": {ID: "a1"}}}
	svc := newAttachmentService(t, activities, &mockAttachmentSubmissionStore{})

	_, err := svc.Upload(context.Background(), "a1", "big.bin", 4096, strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttachmentUploadForSubmissionReplacesPrevious(t *testing.T) {
	submissions := &mockAttachmentSubmissionStore{items: map[string]*models.Submission{
		"sub1": {ID: "sub1", ActivityID: "a1", StudentID: "s1"},
	}}
	svc := newAttachmentService(t, &mockAttachmentActivityStore{}, submissions)

	first, err := svc.UploadForSubmission(context.Background(), "sub1", "draft.txt", 5, strings.NewReader("draft"))
	require.NoError(t, err)
	assert.Equal(t, "submission", first.OwnerType)

	second, err := svc.UploadForSubmission(context.Background(), "sub1", "final.txt", 5, strings.NewReader("final"))
	require.NoError(t, err)
	require.NotNil(t, submissions.items["sub1"].Attachment)
	assert.Equal(t, second.Path, *submissions.items["sub1"].Attachment)

	// The replaced file is gone; only the new token resolves.
	_, _, err = svc.Open(first.Token)
	require.Error(t, err)
	file, _, err := svc.Open(second.Token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
}

func TestAttachmentSignedURLForSubmissionWithoutFile(t *testing.T) {
	submissions := &mockAttachmentSubmissionStore{items: map[string]*models.Submission{
		"sub1": {ID: "sub1", ActivityID: "a1", StudentID: "s1"},
	}}
	svc := newAttachmentService(t, &mockAttachmentActivityStore{}, submissions)

	_, err := svc.SignedURLForSubmission(context.Background(), "sub1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttachmentOpenRejectsBadToken(t *testing.T) {
	svc := newAttachmentService(t, &mockAttachmentActivityStore{}, &mockAttachmentSubmissionStore{})

	_, _, err := svc.Open("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
