package runs

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-service/internal/apperr"
	"runner-service/internal/auth"
	"runner-service/internal/logging"
	"runner-service/pkg/db"
)

type memStore struct {
	mu   sync.Mutex
	next int64
	runs []Run
}

func (m *memStore) Insert(_ context.Context, r *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	r.ID = m.next
	m.runs = append(m.runs, *r)
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Run{}
	for _, r := range m.runs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) TotalDistance(_ context.Context, userID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, r := range m.runs {
		if r.UserID == userID {
			total += r.Distance
		}
	}
	return total, nil
}

func newTestService(t *testing.T) (*Service, *memStore, *time.Time) {
	t.Helper()
	store := &memStore{}
	now := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	svc := NewService(nil, logging.Discard(),
		WithStoreFactory(func(db.DBTX) Store { return store }),
		WithClock(func() time.Time { return now }),
	)
	return svc, store, &now
}

func TestRecord_RejectsBadDistances(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := auth.Principal{UserID: "u1"}

	for _, d := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		_, err := svc.Record(context.Background(), p, RecordRequest{Distance: d})
		assert.ErrorIs(t, err, apperr.ErrInvalidRequest, "distance %v", d)
	}
	assert.Empty(t, store.runs)
}

func TestRecord_StoresNullRouteWhenAbsent(t *testing.T) {
	svc, _, _ := newTestService(t)

	r, err := svc.Record(context.Background(), auth.Principal{UserID: "u1"}, RecordRequest{Distance: 0})
	require.NoError(t, err)
	assert.Equal(t, "null", string(r.Route))
	assert.Equal(t, int64(1), r.ID)
}

func TestRecord_RejectsInvalidRoute(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Record(context.Background(), auth.Principal{UserID: "u1"},
		RecordRequest{Distance: 1, Route: json.RawMessage(`{"broken"`)})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestTotalDistance_MonotonicAcrossRecords(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()
	p := auth.Principal{UserID: "u1"}

	total, err := svc.TotalDistance(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, total)

	prev := total
	for _, d := range []float64{3, 0, 7.5} {
		*now = now.Add(time.Minute)
		_, err := svc.Record(ctx, p, RecordRequest{Distance: d})
		require.NoError(t, err)
		total, err = svc.TotalDistance(ctx, "u1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, prev)
		prev = total
	}
	assert.Equal(t, 10.5, total)

	other, err := svc.TotalDistance(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, other)
}
