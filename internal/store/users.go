package store

import (
	"context"

	"github.com/doug-martin/goqu/v9"
)

// CreateUser inserts a new user, failing with Duplicate if code exists.
func (s *Store) CreateUser(ctx context.Context, name, code string) (*User, error) {
	created := now()
	insert := goquDialect.Insert("users").Rows(goqu.Record{
		"name":          name,
		"employee_code": code,
		"active":        true,
		"created_at":    created.String(),
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
	return &User{ID: id, Name: name, EmployeeCode: code, Active: true, CreatedAt: created}, nil
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	qry := goquDialect.From("users").Where(goqu.C("id").Eq(id))
	var u User
	if err := fetchOne(ctx, s.conn, qry, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByCode fetches a single user by employee_code.
func (s *Store) GetUserByCode(ctx context.Context, code string) (*User, error) {
	qry := goquDialect.From("users").Where(goqu.C("employee_code").Eq(code))
	var u User
	if err := fetchOne(ctx, s.conn, qry, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns users with their enrolled template counts, ordered by
// id. When activeOnly is true, deactivated users are excluded.
func (s *Store) ListUsers(ctx context.Context, activeOnly bool) ([]UserWithTemplateCount, error) {
	qry := goquDialect.From("users").
		Select(
			goqu.I("users.id"), goqu.I("users.name"), goqu.I("users.employee_code"),
			goqu.I("users.active"), goqu.I("users.created_at"),
			goqu.COUNT(goqu.I("templates.id")).As("template_count"),
		).
		LeftJoin(goqu.T("templates"), goqu.On(goqu.I("templates.user_id").Eq(goqu.I("users.id")))).
		GroupBy(goqu.I("users.id")).
		Order(goqu.I("users.id").Asc())
	if activeOnly {
		qry = qry.Where(goqu.I("users.active").Eq(true))
	}
	result := make([]UserWithTemplateCount, 0)
	if err := fetch(ctx, s.conn, qry, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeactivateUser sets active=false; historical punches are retained.
func (s *Store) DeactivateUser(ctx context.Context, id int64) error {
	upd := goquDialect.Update("users").Set(goqu.Record{"active": false}).Where(goqu.C("id").Eq(id))
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

// DeleteUser cascades templates and devices (enforced by SQLite foreign
// keys) and explicitly removes punches, since punches are a ledger with no
// FK cascade.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM punches WHERE user_id = ?", id); err != nil {
		return wrapExecErr(err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return wrapExecErr(err)
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRowsAffected(result interface{ RowsAffected() (int64, error) }) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFound
	}
	return nil
}
