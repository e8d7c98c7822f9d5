package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 20, cfg.Fingerprint.MinQualityScore)
	assert.Equal(t, 40, cfg.Fingerprint.MatchThreshold)
	assert.Equal(t, 10, cfg.TimeClock.AntibounceSeconds)
	assert.Equal(t, 300, cfg.DeviceSecurity.PunchCooldownSeconds)
	assert.Equal(t, 6, cfg.DeviceSecurity.MaxPunchesPerDay)
	assert.Equal(t, 5, cfg.Server.SyncIntervalMinutes)
	assert.Equal(t, 0.15, cfg.AutoPunch.DifferenceThreshold)
	assert.Equal(t, 3, cfg.AutoPunch.StableFrames)
	assert.Equal(t, 5, cfg.AutoPunch.CooldownSeconds)
}

func TestLoadOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checador.toml")
	doc := `
[app]
kiosk_id = "kiosk-42"

[fingerprint]
match_threshold = 55
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "kiosk-42", cfg.App.KioskID)
	assert.Equal(t, 55, cfg.Fingerprint.MatchThreshold)
	// untouched sections keep their defaults
	assert.Equal(t, 20, cfg.Fingerprint.MinQualityScore)
	assert.Equal(t, 300, cfg.DeviceSecurity.PunchCooldownSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrNoConfigFile)
}

func TestSecureRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.App.AdminPasswordHash = "$argon2id$v=19$m=65536,t=4,p=1$c2FsdA$aGFzaA"
	cfg.Server.APIKey = "super-secret-key"

	key := make([]byte, 32)
	require.NoError(t, cfg.Secure(key))

	assert.Empty(t, cfg.App.AdminPasswordHash)
	assert.Empty(t, cfg.Server.APIKey)

	hash, err := cfg.AdminPasswordHash()
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$v=19$m=65536,t=4,p=1$c2FsdA$aGFzaA", hash)

	apiKey, err := cfg.SyncAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "super-secret-key", apiKey)
}

func TestSaveAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checador.toml")

	cfg := Default()
	cfg.path = path
	cfg.Camera.ROI = ROI{X: 10, Y: 20, Width: 300, Height: 300}
	require.NoError(t, cfg.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ROI{X: 10, Y: 20, Width: 300, Height: 300}, reloaded.Camera.ROI)
}
