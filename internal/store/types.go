package store

import "database/sql"

// PunchType is IN or OUT, toggled from the user's last punch.
type PunchType string

const (
	PunchIn  PunchType = "IN"
	PunchOut PunchType = "OUT"
)

// DeviceMatchScore is the sentinel match_score recorded for non-biometric
// companion-device punches.
const DeviceMatchScore = 100

type User struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	EmployeeCode string `db:"employee_code" json:"employee_code"`
	Active       bool   `db:"active" json:"active"`
	CreatedAt    Time   `db:"created_at" json:"created_at"`
}

// UserWithTemplateCount is the row shape returned by the admin users listing.
type UserWithTemplateCount struct {
	User
	TemplateCount int `db:"template_count" json:"template_count"`
}

type Template struct {
	ID           int64  `db:"id" json:"id"`
	UserID       int64  `db:"user_id" json:"user_id"`
	TemplatePath string `db:"template_path" json:"template_path"`
	Quality      int    `db:"quality" json:"quality"`
	CreatedAt    Time   `db:"created_at" json:"created_at"`
}

// GalleryEntry is the minimal shape Matcher.Identify needs: enough to score
// a probe against every enrolled template without pulling in owning users.
type GalleryEntry struct {
	TemplateID int64  `db:"id" json:"template_id"`
	UserID     int64  `db:"user_id" json:"user_id"`
	Path       string `db:"template_path" json:"template_path"`
}

type Punch struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	TimestampUTC   Time      `db:"timestamp_utc" json:"timestamp_utc"`
	TimestampLocal Time      `db:"timestamp_local" json:"timestamp_local"`
	PunchType      PunchType `db:"punch_type" json:"punch_type"`
	MatchScore     int       `db:"match_score" json:"match_score"`
	DeviceID       string    `db:"device_id" json:"device_id"`
	Synced         bool           `db:"synced" json:"synced"`
	SyncError      sql.NullString `db:"sync_error" json:"sync_error,omitempty"`
	SyncAt         NullTime       `db:"sync_at" json:"sync_at,omitempty"`
}

type Device struct {
	ID                int64  `db:"id" json:"id"`
	UserID            int64  `db:"user_id" json:"user_id"`
	Token             string `db:"token" json:"token"`
	Name              string `db:"name" json:"name"`
	CreatedAt         Time   `db:"created_at" json:"created_at"`
	EnrolledUserAgent string `db:"enrolled_user_agent" json:"enrolled_user_agent"`
}

// DeviceWithUser is returned by GetDeviceByToken, which eagerly attaches
// the owning user per the spec contract.
type DeviceWithUser struct {
	Device
	User User
}

type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}
