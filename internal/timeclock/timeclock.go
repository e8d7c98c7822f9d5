// Package timeclock implements the punch-type and anti-bounce policy over
// Store; it performs no I/O of its own beyond the Store calls it wraps.
package timeclock

import (
	"context"
	"errors"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/metrics"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
)

const punchChannel = "biometric"

// TimeClock is a thin policy layer: no state of its own, just Store plus the
// configured kiosk identity and anti-bounce window.
type TimeClock struct {
	store             *store.Store
	kioskID           string
	antibounceSeconds int
}

func New(s *store.Store, kioskID string, antibounceSeconds int) *TimeClock {
	return &TimeClock{store: s, kioskID: kioskID, antibounceSeconds: antibounceSeconds}
}

// DeterminePunchType returns IN if the user has no prior punch, otherwise
// the opposite of their last punch's type.
func (tc *TimeClock) DeterminePunchType(ctx context.Context, userID int64) (store.PunchType, error) {
	last, err := tc.store.GetLastPunch(ctx, userID)
	if errors.Is(err, store.NotFound) {
		return store.PunchIn, nil
	}
	if err != nil {
		return "", err
	}
	if last.PunchType == store.PunchIn {
		return store.PunchOut, nil
	}
	return store.PunchIn, nil
}

// CheckAntibounce reports whether the user's last punch was recent enough
// (UTC wall clock) to treat this attempt as a mechanical double-trigger
// rather than a real second punch.
func (tc *TimeClock) CheckAntibounce(ctx context.Context, userID int64) (blocked bool, err error) {
	last, err := tc.store.GetLastPunch(ctx, userID)
	if errors.Is(err, store.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	elapsed := time.Since(last.TimestampUTC.Time())
	return elapsed < time.Duration(tc.antibounceSeconds)*time.Second, nil
}

// RecordPunch enforces anti-bounce, determines the punch type, and appends
// a punch row stamped with this kiosk's device id. A blocked attempt, or a
// failed punch insert, returns ok=false with a human-readable message and a
// nil err; a Store error while reading the last punch is returned through err.
func (tc *TimeClock) RecordPunch(ctx context.Context, userID int64, matchScore int) (ok bool, punch *store.Punch, message string, err error) {
	blocked, err := tc.CheckAntibounce(ctx, userID)
	if err != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "error").Inc()
		return false, nil, "", err
	}
	if blocked {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "rejected").Inc()
		return false, nil, "Please wait before punching again", nil
	}

	punchType, err := tc.DeterminePunchType(ctx, userID)
	if err != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "error").Inc()
		return false, nil, "", err
	}

	p, err := tc.store.RecordPunch(ctx, userID, punchType, matchScore, tc.kioskID)
	if err != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, string(punchType), "rejected").Inc()
		return false, nil, err.Error(), nil
	}
	metrics.PunchOutcomes.WithLabelValues(punchChannel, string(punchType), "recorded").Inc()
	return true, p, "", nil
}
