package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssetRef describes an uploaded art image. URL is what templates and
// cards reference; StorageKey addresses the blob in the asset store.
type AssetRef struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	URL         string    `json:"url"`
	StorageKey  string    `json:"-"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Store) CreateAsset(ctx context.Context, a AssetRef) (AssetRef, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.stamp()
	a.CreatedAt = parseTime(now)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO art_assets (id, owner_id, url, storage_key, content_type, size, width, height, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.URL, a.StorageKey, a.ContentType, a.Size, a.Width, a.Height, now)
	if err != nil {
		return AssetRef{}, fmt.Errorf("insert asset: %w", err)
	}
	return a, nil
}

func (s *Store) ListAssets(ctx context.Context, ownerID string) ([]AssetRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, url, storage_key, content_type, size, width, height, created_at
		 FROM art_assets WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()
	out := []AssetRef{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAsset returns the asset if userID owns it.
func (s *Store) GetAsset(ctx context.Context, id, userID string) (AssetRef, error) {
	a, err := scanAsset(s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, url, storage_key, content_type, size, width, height, created_at
		 FROM art_assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return AssetRef{}, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return AssetRef{}, err
	}
	if a.OwnerID != userID {
		return AssetRef{}, fmt.Errorf("asset %s: %w", id, ErrForbidden)
	}
	return a, nil
}

// AssetInUse reports whether any template or saved card references url.
// Templates are shared and asset URLs are public, so every user's rows
// count.
func (s *Store) AssetInUse(ctx context.Context, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM templates WHERE instr(data, ?) > 0) +
		   (SELECT COUNT(*) FROM saved_cards WHERE instr(card, ?) > 0 OR instr(template, ?) > 0)`,
		url, url, url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("asset usage: %w", err)
	}
	return n > 0, nil
}

// DeleteAsset removes the asset row. It refuses with ErrInUse while a
// template or saved card still references the asset URL.
func (s *Store) DeleteAsset(ctx context.Context, id, userID string) (AssetRef, error) {
	a, err := s.GetAsset(ctx, id, userID)
	if err != nil {
		return AssetRef{}, err
	}
	used, err := s.AssetInUse(ctx, a.URL)
	if err != nil {
		return AssetRef{}, err
	}
	if used {
		return AssetRef{}, fmt.Errorf("asset %s: %w", id, ErrInUse)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM art_assets WHERE id = ?`, id)
	if err != nil {
		return AssetRef{}, fmt.Errorf("delete asset: %w", err)
	}
	if err := rowsAffected(res); err != nil {
		return AssetRef{}, fmt.Errorf("asset %s: %w", id, err)
	}
	return a, nil
}

func scanAsset(sc scanner) (AssetRef, error) {
	var a AssetRef
	var created string
	err := sc.Scan(&a.ID, &a.OwnerID, &a.URL, &a.StorageKey, &a.ContentType, &a.Size, &a.Width, &a.Height, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan asset: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return a, nil
}
