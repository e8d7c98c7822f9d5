package timeclock

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeps(t *testing.T, antibounceSeconds int) (*store.Store, *TimeClock, int64) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	u, err := s.CreateUser(context.Background(), "Ada", "EMP100")
	require.NoError(t, err)

	tc := New(s, "kiosk-1", antibounceSeconds)
	return s, tc, u.ID
}

func TestDeterminePunchTypeFirstPunchIsIn(t *testing.T) {
	_, tc, userID := newTestDeps(t, 10)
	punchType, err := tc.DeterminePunchType(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, store.PunchIn, punchType)
}

func TestDeterminePunchTypeTogglesFromLast(t *testing.T) {
	s, tc, userID := newTestDeps(t, 0)
	_, err := s.RecordPunch(context.Background(), userID, store.PunchIn, 55, "kiosk-1")
	require.NoError(t, err)

	punchType, err := tc.DeterminePunchType(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, store.PunchOut, punchType)
}

func TestCheckAntibounceBlocksWithinWindow(t *testing.T) {
	s, tc, userID := newTestDeps(t, 3600)
	_, err := s.RecordPunch(context.Background(), userID, store.PunchIn, 55, "kiosk-1")
	require.NoError(t, err)

	blocked, err := tc.CheckAntibounce(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestCheckAntibounceAllowsWhenWindowZero(t *testing.T) {
	s, tc, userID := newTestDeps(t, 0)
	_, err := s.RecordPunch(context.Background(), userID, store.PunchIn, 55, "kiosk-1")
	require.NoError(t, err)

	blocked, err := tc.CheckAntibounce(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCheckAntibounceFirstPunchNeverBlocked(t *testing.T) {
	_, tc, userID := newTestDeps(t, 3600)
	blocked, err := tc.CheckAntibounce(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRecordPunchSuccess(t *testing.T) {
	_, tc, userID := newTestDeps(t, 0)
	ok, punch, msg, err := tc.RecordPunch(context.Background(), userID, 72)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, punch)
	assert.Equal(t, store.PunchIn, punch.PunchType)
	assert.Equal(t, "kiosk-1", punch.DeviceID)
	assert.Empty(t, msg)
}

func TestRecordPunchBlockedByAntibounce(t *testing.T) {
	s, tc, userID := newTestDeps(t, 3600)
	_, err := s.RecordPunch(context.Background(), userID, store.PunchIn, 55, "kiosk-1")
	require.NoError(t, err)

	ok, punch, msg, err := tc.RecordPunch(context.Background(), userID, 72)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, punch)
	assert.Equal(t, "Please wait before punching again", msg)
}

func TestRecordPunchTogglesAcrossCalls(t *testing.T) {
	_, tc, userID := newTestDeps(t, 0)
	ctx := context.Background()

	ok, first, _, err := tc.RecordPunch(ctx, userID, 72)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.PunchIn, first.PunchType)

	ok, second, _, err := tc.RecordPunch(ctx, userID, 72)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.PunchOut, second.PunchType)
}
