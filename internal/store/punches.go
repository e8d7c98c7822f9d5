package store

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
)

// RecordPunch inserts a new punch row with synced=false.
func (s *Store) RecordPunch(ctx context.Context, userID int64, punchType PunchType, matchScore int, deviceID string) (*Punch, error) {
	utc := now()
	local := Time(nowUTC().Local())
	insert := goquDialect.Insert("punches").Rows(goqu.Record{
		"user_id":         userID,
		"timestamp_utc":   utc.String(),
		"timestamp_local": local.String(),
		"punch_type":      string(punchType),
		"match_score":     matchScore,
		"device_id":       deviceID,
		"synced":          false,
	})
	sqlQry, args, err := insert.ToSQL()
	if err != nil {
		return nil, err
	}
	result, err := s.conn.ExecContext(ctx, sqlQry, args...)
	if err != nil {
		return nil, wrapExecErr(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Punch{
		ID: id, UserID: userID, TimestampUTC: utc, TimestampLocal: local,
		PunchType: punchType, MatchScore: matchScore, DeviceID: deviceID, Synced: false,
	}, nil
}

// GetLastPunch returns the single most recent punch for a user by
// timestamp_utc, or NotFound if the user has never punched.
func (s *Store) GetLastPunch(ctx context.Context, userID int64) (*Punch, error) {
	qry := goquDialect.From("punches").
		Where(goqu.C("user_id").Eq(userID)).
		Order(goqu.C("timestamp_utc").Desc(), goqu.C("id").Desc())
	var p Punch
	if err := fetchOne(ctx, s.conn, qry, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetUserPunchCountToday counts punches since local midnight of the
// kiosk's own local time, per spec §4.A (an intentionally host-timezone
// boundary — see DESIGN.md's Open Question decision).
func (s *Store) GetUserPunchCountToday(ctx context.Context, userID int64) (int, error) {
	midnight := localMidnight(nowUTC())
	qry := goquDialect.From("punches").
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("user_id").Eq(userID), goqu.C("timestamp_local").Gte(Time(midnight).String()))
	sqlQry, args, err := qry.ToSQL()
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.conn.QueryRowxContext(ctx, sqlQry, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetUnsyncedPunches returns up to limit oldest-first unsynced punches.
func (s *Store) GetUnsyncedPunches(ctx context.Context, limit int) ([]Punch, error) {
	qry := goquDialect.From("punches").
		Where(goqu.C("synced").Eq(false)).
		Order(goqu.C("timestamp_utc").Asc(), goqu.C("id").Asc()).
		Limit(uint(limit))
	result := make([]Punch, 0)
	if err := fetch(ctx, s.conn, qry, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CountUnsyncedPunches returns how many punches are still waiting to sync,
// for SyncWorker's status() report.
func (s *Store) CountUnsyncedPunches(ctx context.Context) (int, error) {
	qry := goquDialect.From("punches").
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("synced").Eq(false))
	sqlQry, args, err := qry.ToSQL()
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.conn.QueryRowxContext(ctx, sqlQry, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkPunchesSynced flips synced=true and stamps sync_at for the given ids.
func (s *Store) MarkPunchesSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	upd := goquDialect.Update("punches").
		Set(goqu.Record{"synced": true, "sync_at": now().String(), "sync_error": nil}).
		Where(goqu.C("id").In(ids))
	sqlQry, args, err := upd.ToSQL()
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, sqlQry, args...)
	return wrapExecErr(err)
}

// MarkPunchSyncError records a short failure message for one punch,
// truncated to 500 chars, leaving it unsynced for the next tick.
func (s *Store) MarkPunchSyncError(ctx context.Context, id int64, shortMsg string) error {
	if len(shortMsg) > 500 {
		shortMsg = shortMsg[:500]
	}
	upd := goquDialect.Update("punches").
		Set(goqu.Record{"sync_error": shortMsg}).
		Where(goqu.C("id").Eq(id))
	sqlQry, args, err := upd.ToSQL()
	if err != nil {
		return err
	}
	result, err := s.conn.ExecContext(ctx, sqlQry, args...)
	if err != nil {
		return wrapExecErr(err)
	}
	return requireRowsAffected(result)
}

// GetPunches filters punches by an optional [start, end) UTC window and
// optional user, oldest first; backs the CLI's export command.
func (s *Store) GetPunches(ctx context.Context, start, end *Time, userID *int64) ([]Punch, error) {
	qry := goquDialect.From("punches").Order(goqu.C("timestamp_utc").Asc())
	if start != nil {
		qry = qry.Where(goqu.C("timestamp_utc").Gte(start.String()))
	}
	if end != nil {
		qry = qry.Where(goqu.C("timestamp_utc").Lt(end.String()))
	}
	if userID != nil {
		qry = qry.Where(goqu.C("user_id").Eq(*userID))
	}
	result := make([]Punch, 0)
	if err := fetch(ctx, s.conn, qry, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// localMidnight returns the start of the current local calendar day, in the
// host's own timezone (not UTC) per spec §4.A.
func localMidnight(t time.Time) time.Time {
	local := t.Local()
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, local.Location())
}
