package store

import (
	"context"

	"github.com/doug-martin/goqu/v9"
)

// AddTemplate inserts a new enrolled template; the caller guarantees
// quality already passed the min_quality_score gate.
func (s *Store) AddTemplate(ctx context.Context, userID int64, path string, quality int) (*Template, error) {
	created := now()
	insert := goquDialect.Insert("templates").Rows(goqu.Record{
		"user_id":       userID,
		"template_path": path,
		"quality":       quality,
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
	return &Template{ID: id, UserID: userID, TemplatePath: path, Quality: quality, CreatedAt: created}, nil
}

// GetAllTemplates returns templates joined to active users only, ordered
// by quality descending so the Matcher's gallery walk hits its best
// candidates first.
func (s *Store) GetAllTemplates(ctx context.Context) ([]GalleryEntry, error) {
	qry := goquDialect.From("templates").
		Select(goqu.I("templates.id"), goqu.I("templates.user_id"), goqu.I("templates.template_path")).
		InnerJoin(goqu.T("users"), goqu.On(goqu.I("users.id").Eq(goqu.I("templates.user_id")))).
		Where(goqu.I("users.active").Eq(true)).
		Order(goqu.I("templates.quality").Desc(), goqu.I("templates.id").Asc())
	result := make([]GalleryEntry, 0)
	if err := fetch(ctx, s.conn, qry, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CountTemplates returns how many templates a user has enrolled, used by
// the enrollment flow to decide how many more samples are required.
func (s *Store) CountTemplates(ctx context.Context, userID int64) (int, error) {
	qry := goquDialect.From("templates").
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("user_id").Eq(userID))
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
