package store

import (
	"context"

	"github.com/doug-martin/goqu/v9"
)

// RegisterDevice enrolls a companion device, failing with Duplicate if
// token already exists.
func (s *Store) RegisterDevice(ctx context.Context, userID int64, token, name, userAgent string) (*Device, error) {
	created := now()
	insert := goquDialect.Insert("devices").Rows(goqu.Record{
		"user_id":             userID,
		"token":               token,
		"name":                name,
		"created_at":          created.String(),
		"enrolled_user_agent": userAgent,
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
	return &Device{
		ID: id, UserID: userID, Token: token, Name: name,
		CreatedAt: created, EnrolledUserAgent: userAgent,
	}, nil
}

// GetDeviceByToken returns the device with its owning user eagerly attached.
func (s *Store) GetDeviceByToken(ctx context.Context, token string) (*DeviceWithUser, error) {
	qry := goquDialect.From("devices").
		Select(
			goqu.I("devices.id"), goqu.I("devices.user_id"), goqu.I("devices.token"),
			goqu.I("devices.name"), goqu.I("devices.created_at"), goqu.I("devices.enrolled_user_agent"),
			goqu.I("users.id").As("user.id"), goqu.I("users.name").As("user.name"),
			goqu.I("users.employee_code").As("user.employee_code"),
			goqu.I("users.active").As("user.active"), goqu.I("users.created_at").As("user.created_at"),
		).
		InnerJoin(goqu.T("users"), goqu.On(goqu.I("users.id").Eq(goqu.I("devices.user_id")))).
		Where(goqu.I("devices.token").Eq(token))

	var row deviceWithUserRow
	if err := fetchOne(ctx, s.conn, qry, &row); err != nil {
		return nil, err
	}
	return row.toDeviceWithUser(), nil
}

// deviceWithUserRow mirrors the joined column aliases sqlx's "." nested
// struct mapping understands (sqlx splits on "." by default).
type deviceWithUserRow struct {
	Device
	User User `db:"user"`
}

func (r deviceWithUserRow) toDeviceWithUser() *DeviceWithUser {
	return &DeviceWithUser{Device: r.Device, User: r.User}
}

// UpdateDeviceUserAgent soft-updates the bound user agent; idempotent.
func (s *Store) UpdateDeviceUserAgent(ctx context.Context, token, ua string) error {
	upd := goquDialect.Update("devices").
		Set(goqu.Record{"enrolled_user_agent": ua}).
		Where(goqu.C("token").Eq(token))
	sqlQry, args, err := upd.ToSQL()
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, sqlQry, args...)
	return wrapExecErr(err)
}

// ListDevices returns every enrolled companion device.
func (s *Store) ListDevices(ctx context.Context) ([]Device, error) {
	qry := goquDialect.From("devices").Order(goqu.C("id").Asc())
	result := make([]Device, 0)
	if err := fetch(ctx, s.conn, qry, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDevice removes a single paired device by id.
func (s *Store) DeleteDevice(ctx context.Context, id int64) error {
	del := goquDialect.Delete("devices").Where(goqu.C("id").Eq(id))
	sqlQry, args, err := del.ToSQL()
	if err != nil {
		return err
	}
	result, err := s.conn.ExecContext(ctx, sqlQry, args...)
	if err != nil {
		return wrapExecErr(err)
	}
	return requireRowsAffected(result)
}
