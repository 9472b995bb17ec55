package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/youruser/cardsmith/internal/template"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ownerOf returns the owner column of a row in one of the owned tables.
func ownerOf(ctx context.Context, q querier, table, id string) (string, error) {
	var owner string
	err := q.QueryRowContext(ctx, `SELECT owner_id FROM `+table+` WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s owner: %w", table, err)
	}
	return owner, nil
}

func checkOwner(ctx context.Context, q querier, table, id, userID string) error {
	owner, err := ownerOf(ctx, q, table, id)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}

// GetTemplates lists the templates of ownerID, or every template when
// ownerID is empty.
func (s *Store) GetTemplates(ctx context.Context, ownerID string) ([]*template.Template, error) {
	q := `SELECT id, owner_id, data, created_at, updated_at FROM templates`
	args := []any{}
	if ownerID != "" {
		q += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	q += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []*template.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTemplate returns any template by id; templates are readable by every
// authenticated user.
func (s *Store) GetTemplate(ctx context.Context, id string) (*template.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, data, created_at, updated_at FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return t, err
}

// CreateTemplate validates and stores tpl. OwnerID must be set; the id and
// timestamps are assigned here.
func (s *Store) CreateTemplate(ctx context.Context, tpl *template.Template) (*template.Template, error) {
	if tpl == nil || tpl.OwnerID == "" {
		return nil, fmt.Errorf("%w: template owner is required", ErrValidation)
	}
	t := tpl.Clone()
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := s.stamp()
	t.CreatedAt, t.UpdatedAt = parseTime(now), parseTime(now)

	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, owner_id, author_name, name, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.AuthorName, t.Name, string(data), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("template %s: %w", t.ID, ErrConflict)
		}
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

// UpdateTemplate replaces the stored template. Only the owner may update;
// the owner and creation time cannot change.
func (s *Store) UpdateTemplate(ctx context.Context, tpl *template.Template, userID string) (*template.Template, error) {
	if tpl == nil {
		return nil, fmt.Errorf("%w: template is required", ErrValidation)
	}
	t := tpl.Clone()
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, "templates", t.ID, userID); err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}
		var created string
		if err := tx.QueryRowContext(ctx, `SELECT created_at FROM templates WHERE id = ?`, t.ID).Scan(&created); err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		now := s.stamp()
		t.OwnerID = userID
		t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(now)
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode template: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE templates SET author_name = ?, name = ?, data = ?, updated_at = ? WHERE id = ?`,
			t.AuthorName, t.Name, string(data), now, t.ID)
		if err != nil {
			return fmt.Errorf("update template: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, "templates", id, userID); err != nil {
			return fmt.Errorf("template %s: %w", id, err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete template: %w", err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(sc scanner) (*template.Template, error) {
	var id, owner, data, created, updated string
	if err := sc.Scan(&id, &owner, &data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	var t template.Template
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", id, err)
	}
	t.ID, t.OwnerID = id, owner
	t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(updated)
	return &t, nil
}
