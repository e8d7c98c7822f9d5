// Package deviceauth implements the companion-device punch channel: a
// three-step bound challenge-response over a paired device token.
package deviceauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/crypt/token"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/metrics"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/timeclock"
	"github.com/ElectronicCats/uvc-fingerprint-server/log"
	"github.com/ElectronicCats/uvc-fingerprint-server/types/collections"
)

const (
	challengeByteLength = 32
	punchChannel        = "device"
)

var (
	// ErrDeviceNotFound means the token does not match an enrolled device.
	ErrDeviceNotFound = errors.New("deviceauth: device not found")
	// ErrChallengeInvalid covers missing, expired, or mismatched challenges.
	ErrChallengeInvalid = errors.New("deviceauth: invalid or expired challenge")
)

type challenge struct {
	token   string
	value   string
	expires time.Time
}

// DeviceAuth holds the in-memory challenge registry and the Store/TimeClock
// it authorizes punches against.
type DeviceAuth struct {
	store            *store.Store
	timeClock        *timeclock.TimeClock
	challenges       *collections.Map[string, challenge]
	challengeExpiry  time.Duration
	punchCooldown    time.Duration
	maxPunchesPerDay int
	logger           *log.Logger
}

func New(s *store.Store, tc *timeclock.TimeClock, challengeExpirySeconds, punchCooldownSeconds, maxPunchesPerDay int) *DeviceAuth {
	return &DeviceAuth{
		store:            s,
		timeClock:        tc,
		challenges:       collections.NewMap[string, challenge](),
		challengeExpiry:  time.Duration(challengeExpirySeconds) * time.Second,
		punchCooldown:    time.Duration(punchCooldownSeconds) * time.Second,
		maxPunchesPerDay: maxPunchesPerDay,
		logger:           log.New("deviceauth"),
	}
}

// Enroll binds a companion device token to a user. Callers are responsible
// for the admin-token gate; this method only performs the Store write.
func (d *DeviceAuth) Enroll(ctx context.Context, userID int64, deviceToken, name, userAgent string) (*store.Device, error) {
	return d.store.RegisterDevice(ctx, userID, deviceToken, name, userAgent)
}

// Challenge verifies the device token exists, soft-updates the stored user
// agent on mismatch (token is the real authenticator, UA is advisory),
// sweeps expired challenges, and mints a fresh one.
func (d *DeviceAuth) Challenge(ctx context.Context, deviceToken, userAgent string) (value string, ttl time.Duration, err error) {
	device, err := d.store.GetDeviceByToken(ctx, deviceToken)
	if errors.Is(err, store.NotFound) {
		return "", 0, ErrDeviceNotFound
	}
	if err != nil {
		return "", 0, err
	}
	if userAgent != "" && userAgent != device.EnrolledUserAgent {
		d.logger.Info("device user agent changed", map[string]interface{}{"token": deviceToken})
		if err := d.store.UpdateDeviceUserAgent(ctx, deviceToken, userAgent); err != nil {
			return "", 0, err
		}
	}

	d.sweepExpired()

	raw, err := token.GenerateSecureBase64Token(challengeByteLength)
	if err != nil {
		return "", 0, fmt.Errorf("deviceauth: generate challenge: %w", err)
	}
	expires := time.Now().Add(d.challengeExpiry)
	d.challenges.Add(raw, challenge{token: deviceToken, value: raw, expires: expires})
	return raw, d.challengeExpiry, nil
}

// Punch verifies and atomically consumes a challenge, then enforces the
// companion device's cooldown and daily limit before recording the punch.
func (d *DeviceAuth) Punch(ctx context.Context, deviceToken, challengeValue string) (ok bool, punch *store.Punch, message string, err error) {
	c, verifyErr := d.challenges.Get(challengeValue)
	d.challenges.Delete(challengeValue) // single-use regardless of outcome
	if verifyErr != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "rejected").Inc()
		return false, nil, "", ErrChallengeInvalid
	}
	if c.token != deviceToken {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "rejected").Inc()
		return false, nil, "", ErrChallengeInvalid
	}
	if time.Now().After(c.expires) {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "rejected").Inc()
		return false, nil, "", ErrChallengeInvalid
	}

	device, err := d.store.GetDeviceByToken(ctx, deviceToken)
	if errors.Is(err, store.NotFound) {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "rejected").Inc()
		return false, nil, "", ErrDeviceNotFound
	}
	if err != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "error").Inc()
		return false, nil, "", err
	}

	last, err := d.store.GetLastPunch(ctx, device.User.ID)
	if err != nil && !errors.Is(err, store.NotFound) {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "error").Inc()
		return false, nil, "", err
	}
	if err == nil {
		since := time.Since(last.TimestampUTC.Time())
		if since < d.punchCooldown {
			wait := int((d.punchCooldown - since).Seconds())
			metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "rejected").Inc()
			return false, nil, fmt.Sprintf("please wait %d seconds", wait), nil
		}
	}

	count, err := d.store.GetUserPunchCountToday(ctx, device.User.ID)
	if err != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "error").Inc()
		return false, nil, "", err
	}
	if count >= d.maxPunchesPerDay {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "rejected").Inc()
		return false, nil, "daily punch limit reached", nil
	}

	punchType, err := d.timeClock.DeterminePunchType(ctx, device.User.ID)
	if err != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, "", "error").Inc()
		return false, nil, "", err
	}

	p, err := d.store.RecordPunch(ctx, device.User.ID, punchType, store.DeviceMatchScore, fmt.Sprintf("device_%d", device.ID))
	if err != nil {
		metrics.PunchOutcomes.WithLabelValues(punchChannel, string(punchType), "error").Inc()
		return false, nil, "", err
	}
	metrics.PunchOutcomes.WithLabelValues(punchChannel, string(punchType), "recorded").Inc()
	return true, p, "", nil
}

func (d *DeviceAuth) sweepExpired() {
	now := time.Now()
	for _, key := range d.challenges.GetKeys() {
		c, err := d.challenges.Get(key)
		if err != nil {
			continue
		}
		if now.After(c.expires) {
			d.challenges.Delete(key)
		}
	}
}
