package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

const userColumns = `
	u.id, u.name, u.email, u.mobile, u.user_type, u.disabled, u.translator_type, u.translator_level,
	u.gender, u.city, u.address, u.instructions, u.consumer_type, u.customer_type,
	u.not_get_notification, u.not_get_nighttime, u.not_get_emergency,
	ARRAY(SELECT ul.language_id FROM user_languages ul WHERE ul.user_id = u.id ORDER BY ul.language_id) AS language_ids,
	ARRAY(SELECT ub.translator_id FROM user_blacklist ub WHERE ub.customer_id = u.id ORDER BY ub.translator_id) AS blacklist`

// userRow carries the aggregated language and blacklist arrays next to the
// scalar user columns.
type userRow struct {
	domain.User
	LanguageIDs pq.Int64Array `db:"language_ids"`
	Blacklist   pq.Int64Array `db:"blacklist"`
}

func (row userRow) toDomain() domain.User {
	u := row.User
	u.LanguageIDs = []int64(row.LanguageIDs)
	u.Blacklist = []int64(row.Blacklist)
	return u
}

func (r *repo) getUser(ctx context.Context, key any, where string) (domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+userColumns+` FROM users u WHERE `+where, key)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.UserNotFound(key)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *repo) FindUser(ctx context.Context, id int64) (domain.User, error) {
	return r.getUser(ctx, id, `u.id = $1`)
}

func (r *repo) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUser(ctx, strings.TrimSpace(email), `lower(u.email) = lower($1)`)
}

// LockUser holds the user's row lock until the transaction ends. Accepts by
// the same translator are serialized on it.
func (r *repo) LockUser(ctx context.Context, id int64) error {
	var locked int64
	err := sqlx.GetContext(ctx, r.db, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

func (r *repo) ListTranslators(ctx context.Context, languageID int64) ([]domain.User, error) {
	return r.selectUsers(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.user_type = $1
		  AND NOT u.disabled
		  AND EXISTS (SELECT 1 FROM user_languages ul WHERE ul.user_id = u.id AND ul.language_id = $2)
		ORDER BY u.id`, domain.UserTranslator, languageID)
}

func (r *repo) UsersByID(ctx context.Context, ids []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := r.selectUsers(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *repo) selectUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
