package store

import (
	"context"

	"github.com/doug-martin/goqu/v9"
)

// GetSetting returns the value for key, or NotFound if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	qry := goquDialect.From("settings").Where(goqu.C("key").Eq(key))
	var row Setting
	if err := fetchOne(ctx, s.conn, qry, &row); err != nil {
		return "", err
	}
	return row.Value, nil
}

// SetSetting upserts key=value in the flat settings table.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	sqlQry, args, err := goquDialect.Insert("settings").
		Rows(goqu.Record{"key": key, "value": value}).
		OnConflict(goqu.DoUpdate("key", goqu.Record{"value": value})).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, sqlQry, args...)
	return wrapExecErr(err)
}
