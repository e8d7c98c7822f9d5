package syncworker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStoreWithPunches(t *testing.T, n int) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	u, err := s.CreateUser(context.Background(), "Ada", "EMP300")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := s.RecordPunch(context.Background(), u.ID, store.PunchIn, 55, "kiosk-1")
		require.NoError(t, err)
	}
	return s
}

func TestSyncNowMarksSyncedOn200(t *testing.T) {
	var receivedKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := newTestStoreWithPunches(t, 2)
	w := New(s, true, server.URL, "secret-key", 5)

	w.SyncNow(context.Background())

	assert.Equal(t, "secret-key", receivedKey)
	count, err := s.CountUnsyncedPunches(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSyncNowNoopWhenDisabled(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := newTestStoreWithPunches(t, 1)
	w := New(s, false, server.URL, "secret-key", 5)
	w.SyncNow(context.Background())

	assert.Zero(t, calls)
	count, err := s.CountUnsyncedPunches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncNowLeavesUnsyncedOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := newTestStoreWithPunches(t, 1)
	w := New(s, true, server.URL, "secret-key", 5)
	w.SyncNow(context.Background())

	count, err := s.CountUnsyncedPunches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncNowNoopWhenNothingUnsynced(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := newTestStoreWithPunches(t, 0)
	w := New(s, true, server.URL, "secret-key", 5)
	w.SyncNow(context.Background())
	assert.Zero(t, calls)
}

func TestGetStatusReportsBacklog(t *testing.T) {
	s := newTestStoreWithPunches(t, 3)
	w := New(s, true, "http://example.invalid", "key", 5)

	status := w.GetStatus(context.Background())
	assert.True(t, status.Enabled)
	assert.False(t, status.Running)
	assert.Equal(t, 3, status.UnsyncedCount)
}

func TestStartAndStop(t *testing.T) {
	s := newTestStoreWithPunches(t, 0)
	w := New(s, true, "http://example.invalid", "key", 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	status := w.GetStatus(context.Background())
	assert.True(t, status.Running)

	w.Stop()
	status = w.GetStatus(context.Background())
	assert.False(t, status.Running)
}
