package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
)

type mockSweepSource struct {
	mu         sync.Mutex
	stale      []models.Activity
	recomputed []string
}

func (m *mockSweepSource) ListStale(ctx context.Context, now time.Time) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stale := m.stale
	m.stale = nil
	return stale, nil
}

func (m *mockSweepSource) RecomputeStatus(ctx context.Context, id string) (models.ActivityStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputed = append(m.recomputed, id)
	return models.ActivityStatusPastDue, nil
}

func (m *mockSweepSource) recomputedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.recomputed...)
}

func TestStatusSweepRecomputesStaleActivities(t *testing.T) {
	source := &mockSweepSource{stale: []models.Activity{
		{ID: "a1", Status: models.ActivityStatusOpen},
		{ID: "a2", Status: models.ActivityStatusOpen},
	}}
	sweep := NewStatusSweepService(source, 10*time.Millisecond, 1, zap.NewNop())

	sweep.Start(context.Background())
	defer sweep.Stop()

	assert.Eventually(t, func() bool {
		ids := source.recomputedIDs()
		return len(ids) == 2
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"a1", "a2"}, source.recomputedIDs())
}

func TestStatusSweepNoStaleActivities(t *testing.T) {
	source := &mockSweepSource{}
	sweep := NewStatusSweepService(source, 5*time.Millisecond, 2, zap.NewNop())

	sweep.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	sweep.Stop()

	assert.Empty(t, source.recomputedIDs())
}
