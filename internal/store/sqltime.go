package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Time adapts time.Time for sqlite's TEXT-typed timestamp columns: the
// driver hands Scan a string (or []byte), not a time.Time, so a bare
// time.Time field in a StructScan target would fail every read.
type Time time.Time

// sqlTimeLayout is RFC3339Nano with the fractional-second digits forced to
// a fixed width (0s rather than 9s in the reference time) instead of
// trailing-zero-trimmed: "...00.1Z" and "...00.12Z" both print with all
// nine digits, so the TEXT column's lexical ORDER BY agrees with
// chronological order. Plain RFC3339Nano breaks on two punches a fraction
// of a second apart whose trimmed widths differ.
const sqlTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (t Time) String() string { return time.Time(t).Format(sqlTimeLayout) }

func (t Time) Time() time.Time { return time.Time(t) }

func (t Time) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Time(time.Time{})
		return nil
	case time.Time:
		*t = Time(v)
		return nil
	case string:
		parsed, err := parseSQLTime(v)
		if err != nil {
			return err
		}
		*t = Time(parsed)
		return nil
	case []byte:
		parsed, err := parseSQLTime(string(v))
		if err != nil {
			return err
		}
		*t = Time(parsed)
		return nil
	default:
		return fmt.Errorf("store: cannot scan %T into Time", src)
	}
}

// parseSQLTime accepts the fixed-width layout this package now writes, and
// falls back to bare RFC3339Nano for rows written before the fixed-width
// format landed.
func parseSQLTime(v string) (time.Time, error) {
	if parsed, err := time.Parse(sqlTimeLayout, v); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var parsed time.Time
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*t = Time(parsed)
	return nil
}

func now() Time { return Time(nowUTC()) }

// NullTime is an optional Time, mirroring sql.NullTime/sql.NullString for
// the punch table's sync_at column, which is unset until a sync attempt.
type NullTime struct {
	Time  Time
	Valid bool
}

func (n NullTime) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Time.Value()
}

func (n *NullTime) Scan(src any) error {
	if src == nil {
		n.Time, n.Valid = Time{}, false
		return nil
	}
	if err := n.Time.Scan(src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.Time.MarshalJSON()
}
