// Package config holds the kiosk's own on-disk configuration: the TOML
// document described by sections app/camera/fingerprint/database/storage/
// timeclock/device_security/server/autopunch, distinct from the ambient
// config package (which backs process env/JSON configuration for the
// runtime container itself).
package config

import (
	"os"
	"sync"

	"github.com/ElectronicCats/uvc-fingerprint-server/crypt/secure"
	"github.com/ElectronicCats/uvc-fingerprint-server/utils"
	"github.com/pelletier/go-toml/v2"
)

const (
	ErrNoConfigFile = utils.Error("config: no config file at path")
)

type AppConfig struct {
	KioskID           string `toml:"kiosk_id"`
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	AdminPasswordHash string `toml:"admin_password_hash"`
	Debug             bool   `toml:"debug"`
}

type ROI struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type CameraConfig struct {
	Device string `toml:"device"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	ROI    ROI    `toml:"roi"`
}

type FingerprintConfig struct {
	MinQualityScore int    `toml:"min_quality_score"`
	MatchThreshold  int    `toml:"match_threshold"`
	MindtctPath     string `toml:"mindtct_path"`
	Bozorth3Path    string `toml:"bozorth3_path"`
	Parallel        bool   `toml:"parallel"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StorageConfig struct {
	TemplateDir string `toml:"template_dir"`
	TempDir     string `toml:"temp_dir"`
}

type TimeClockConfig struct {
	AntibounceSeconds int `toml:"antibounce_seconds"`
}

type DeviceSecurityConfig struct {
	ChallengeExpirySeconds int `toml:"challenge_expiry_seconds"`
	PunchCooldownSeconds   int `toml:"punch_cooldown_seconds"`
	MaxPunchesPerDay       int `toml:"max_punches_per_day"`
}

type ServerConfig struct {
	Enabled             bool   `toml:"enabled"`
	URL                 string `toml:"url"`
	APIKey              string `toml:"api_key"`
	SyncIntervalMinutes int    `toml:"sync_interval_minutes"`
}

type AutoPunchConfig struct {
	DifferenceThreshold float64 `toml:"difference_threshold"`
	StableFrames        int     `toml:"stable_frames"`
	CooldownSeconds     int     `toml:"cooldown_seconds"`
	MotionDelta         int     `toml:"motion_delta"`
}

// Config is the full kiosk configuration document. adminPasswordHash and
// syncAPIKey hold the two secret fields in encrypted-in-memory
// form once Secure() has been called; the plaintext TOML fields are cleared
// at that point so a later accidental Save never writes secrets back out in
// the clear.
type Config struct {
	App            AppConfig            `toml:"app"`
	Camera         CameraConfig         `toml:"camera"`
	Fingerprint    FingerprintConfig    `toml:"fingerprint"`
	Database       DatabaseConfig       `toml:"database"`
	Storage        StorageConfig        `toml:"storage"`
	TimeClock      TimeClockConfig      `toml:"timeclock"`
	DeviceSecurity DeviceSecurityConfig `toml:"device_security"`
	Server         ServerConfig         `toml:"server"`
	AutoPunch      AutoPunchConfig      `toml:"autopunch"`

	adminPasswordHash *secure.Credential
	syncAPIKey        *secure.Credential
	path              string
	mu                sync.Mutex
}

// Default returns the document with every §3/§4 default value populated;
// loading a file over it only overwrites the sections actually present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			KioskID: "kiosk-1",
			Host:    "0.0.0.0",
			Port:    8000,
		},
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
			ROI:    ROI{X: 0, Y: 0, Width: 640, Height: 480},
		},
		Fingerprint: FingerprintConfig{
			MinQualityScore: 20,
			MatchThreshold:  40,
			MindtctPath:     "/usr/local/bin/mindtct",
			Bozorth3Path:    "/usr/local/bin/bozorth3",
		},
		Database: DatabaseConfig{
			Path: "/var/lib/checador/checador.db",
		},
		Storage: StorageConfig{
			TemplateDir: "/var/lib/checador/templates",
			TempDir:     "/var/lib/checador/tmp",
		},
		TimeClock: TimeClockConfig{
			AntibounceSeconds: 10,
		},
		DeviceSecurity: DeviceSecurityConfig{
			ChallengeExpirySeconds: 60,
			PunchCooldownSeconds:   300,
			MaxPunchesPerDay:       6,
		},
		Server: ServerConfig{
			Enabled:             false,
			SyncIntervalMinutes: 5,
		},
		AutoPunch: AutoPunchConfig{
			DifferenceThreshold: 0.15,
			StableFrames:        3,
			CooldownSeconds:     5,
			MotionDelta:         30,
		},
	}
}

// Load reads path, decoding over Default() so any section the file omits
// keeps its built-in default, then remembers path for later Save calls.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfigFile
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Secure moves the plaintext admin password hash and sync API key into
// AES-256-GCM-encrypted in-memory credentials and blanks the plaintext
// struct fields, so a later Save never re-serializes them in the clear.
func (c *Config) Secure(encryptionKey []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash, err := secure.NewCredential([]byte(c.App.AdminPasswordHash), encryptionKey, true)
	if err != nil {
		return err
	}
	c.adminPasswordHash = hash
	c.App.AdminPasswordHash = ""

	key, err := secure.NewCredential([]byte(c.Server.APIKey), encryptionKey, true)
	if err != nil {
		return err
	}
	c.syncAPIKey = key
	c.Server.APIKey = ""
	return nil
}

// AdminPasswordHash returns the decrypted Argon2id hash used by AdminAuth.
func (c *Config) AdminPasswordHash() (string, error) {
	if c.adminPasswordHash == nil {
		return c.App.AdminPasswordHash, nil
	}
	return c.adminPasswordHash.Get()
}

// SyncAPIKey returns the decrypted API key used by SyncWorker's outbound requests.
func (c *Config) SyncAPIKey() (string, error) {
	if c.syncAPIKey == nil {
		return c.Server.APIKey, nil
	}
	return c.syncAPIKey.Get()
}

// Save rewrites the config file in place, holding a per-Config mutex so
// concurrent writers (e.g. the calibration ROI endpoint and an admin
// password change) serialise rather than race on the same file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" {
		return ErrNoConfigFile
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

// SetROI updates the camera ROI and persists it, used by the calibration endpoint.
func (c *Config) SetROI(roi ROI) error {
	c.mu.Lock()
	c.Camera.ROI = roi
	c.mu.Unlock()
	return c.Save()
}
