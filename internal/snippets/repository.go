package snippets

import (
	"context"
	"fmt"

	"github.com/PabloPavan/swiftsnip/internal/db"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
)

const (
	dialectPostgres = "postgres"
	tableSnippets   = "snippets"
)

var snippetColumns = []any{
	"id", "title", "description", "code", "language", "tags",
	"is_favorite", "is_public", "user_id", "created_at", "updated_at",
}

type Repository struct {
	base *db.Base
}

func NewRepository(base *db.Base) *Repository {
	return &Repository{base: base}
}

const (
	sqlSnippetInsert = `INSERT INTO snippets (id, title, description, code, language, tags, is_favorite, is_public, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at;`

	sqlSnippetSelectByID = `SELECT id, title, description, code, language, tags, is_favorite, is_public, user_id, created_at, updated_at
		FROM snippets
		WHERE id = $1
		LIMIT 1;`

	sqlSnippetSelectForUpdate = `SELECT id, title, description, code, language, tags, is_favorite, is_public, user_id, created_at, updated_at
		FROM snippets
		WHERE id = $1
		FOR UPDATE;`

	sqlSnippetUpdate = `UPDATE snippets
		SET title = $1, description = $2, code = $3, language = $4, tags = $5, is_favorite = $6, is_public = $7, updated_at = now()
		WHERE id = $8 AND user_id = $9
		RETURNING updated_at;`

	sqlSnippetDelete = `DELETE FROM snippets
		WHERE id = $1 AND user_id = $2;`
)

func (r *Repository) Create(ctx context.Context, s *Snippet) error {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	return r.base.Q().QueryRow(ctx, sqlSnippetInsert,
		s.ID,
		s.Title,
		s.Description,
		s.Code,
		string(s.Language),
		s.Tags,
		s.Favorite,
		s.Public,
		s.OwnerID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Snippet, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	s, err := scanSnippet(r.base.Q().QueryRow(ctx, sqlSnippetSelectByID, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListVisible returns every row of the filter's scope, newest first.
func (r *Repository) ListVisible(ctx context.Context, f VisibleFilter) ([]*Snippet, error) {
	query, args, err := buildVisibleQuery(f)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	rows, err := r.base.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Snippet, 0, 64)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Modify locks the row, hands a copy to fn and stores what fn leaves in it.
// An error from fn rolls the transaction back and is returned unchanged.
func (r *Repository) Modify(ctx context.Context, id string, fn func(current *Snippet) error) (*Snippet, error) {
	var updated *Snippet
	err := r.base.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		q := r.base.TxQ(tx)

		current, err := scanSnippet(q.QueryRow(ctx, sqlSnippetSelectForUpdate, id))
		if err != nil {
			if IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		next := current.clone()
		if err := fn(next); err != nil {
			return err
		}

		if err := q.QueryRow(ctx, sqlSnippetUpdate,
			next.Title,
			next.Description,
			next.Code,
			string(next.Language),
			next.Tags,
			next.Favorite,
			next.Public,
			current.ID,
			current.OwnerID,
		).Scan(&next.UpdatedAt); err != nil {
			return err
		}
		next.ID = current.ID
		next.OwnerID = current.OwnerID
		next.CreatedAt = current.CreatedAt
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, id string, ownerID string) error {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	tag, err := r.base.Q().Exec(ctx, sqlSnippetDelete, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildVisibleQuery(f VisibleFilter) (string, []any, error) {
	ds := goqu.Dialect(dialectPostgres).
		From(tableSnippets).
		Select(snippetColumns...).
		Order(goqu.I("updated_at").Desc(), goqu.I("id").Asc()).
		Prepared(true)

	switch f.Scope {
	case ScopeAll:
	case ScopeOwner:
		if f.OwnerID == "" {
			return "", nil, fmt.Errorf("build visible snippets query: owner scope without owner")
		}
		ds = ds.Where(goqu.C("user_id").Eq(f.OwnerID))
	default:
		ds = ds.Where(goqu.C("is_public").IsTrue())
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build visible snippets query: %w", err)
	}
	return query, args, nil
}

func scanSnippet(row pgx.Row) (*Snippet, error) {
	var s Snippet
	var language string
	if err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		&s.Code,
		&language,
		&s.Tags,
		&s.Favorite,
		&s.Public,
		&s.OwnerID,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Language = Language(language)
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return &s, nil
}
