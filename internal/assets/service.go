package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/youruser/cardsmith/internal/storage"
)

// DefaultMaxBytes caps a single upload.
const DefaultMaxBytes = 16 << 20

// URLPrefix is prepended to storage keys to form asset URLs.
const URLPrefix = "/assets/"

var (
	ErrAssetInUse    = errors.New("asset is used by a template or card")
	ErrInvalidUpload = errors.New("invalid upload")
)

// Repository is the metadata side of the asset store.
type Repository interface {
	CreateAsset(ctx context.Context, a storage.AssetRef) (storage.AssetRef, error)
	ListAssets(ctx context.Context, ownerID string) ([]storage.AssetRef, error)
	DeleteAsset(ctx context.Context, id, userID string) (storage.AssetRef, error)
}

// Service uploads, lists and deletes user art.
type Service struct {
	Repo     Repository
	Blobs    BlobStore
	MaxBytes int64
	Logger   *slog.Logger
	// OnDelete is told the URL of every deleted asset, e.g. to evict it
	// from an image cache.
	OnDelete func(url string)

	now func() time.Time
}

func NewService(repo Repository, blobs BlobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Repo: repo, Blobs: blobs, MaxBytes: DefaultMaxBytes, Logger: logger, now: time.Now}
}

// UploadArt validates the image, stores its bytes and records it for owner.
func (s *Service) UploadArt(ctx context.Context, ownerID string, data []byte) (storage.AssetRef, error) {
	if len(data) == 0 {
		return storage.AssetRef{}, fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return storage.AssetRef{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidUpload, len(data), s.MaxBytes)
	}
	ct := http.DetectContentType(data)
	ext := extFor(ct)
	if ext == "" {
		return storage.AssetRef{}, fmt.Errorf("%w: unsupported type %s", ErrInvalidUpload, ct)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return storage.AssetRef{}, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}

	key := s.storageKey(ownerID, ext)
	if err := s.Blobs.Put(ctx, key, data, ct); err != nil {
		return storage.AssetRef{}, fmt.Errorf("store art: %w", err)
	}
	b := img.Bounds()
	ref, err := s.Repo.CreateAsset(ctx, storage.AssetRef{
		OwnerID:     ownerID,
		URL:         URLPrefix + key,
		StorageKey:  key,
		ContentType: ct,
		Size:        int64(len(data)),
		Width:       b.Dx(),
		Height:      b.Dy(),
	})
	if err != nil {
		if delErr := s.Blobs.Delete(ctx, key); delErr != nil {
			s.Logger.Warn("orphaned art blob", "key", key, "error", delErr)
		}
		return storage.AssetRef{}, err
	}
	s.Logger.Info("art uploaded", "owner", ownerID, "key", key, "size", ref.Size)
	return ref, nil
}

func (s *Service) ListArt(ctx context.Context, ownerID string) ([]storage.AssetRef, error) {
	return s.Repo.ListAssets(ctx, ownerID)
}

// DeleteArt removes an asset unless a template or saved card still uses it.
// A blob that cannot be removed is logged; the asset is gone either way.
func (s *Service) DeleteArt(ctx context.Context, ownerID, id string) error {
	ref, err := s.Repo.DeleteAsset(ctx, id, ownerID)
	if errors.Is(err, storage.ErrInUse) {
		return fmt.Errorf("%w: %w", ErrAssetInUse, err)
	}
	if err != nil {
		return err
	}
	if err := s.Blobs.Delete(ctx, ref.StorageKey); err != nil {
		s.Logger.Warn("delete art blob", "key", ref.StorageKey, "error", err)
	}
	if s.OnDelete != nil {
		s.OnDelete(ref.URL)
	}
	return nil
}

// Open returns the bytes stored under key. It backs both the /assets/
// route and the renderer's image loader.
func (s *Service) Open(ctx context.Context, key string) ([]byte, error) {
	return s.Blobs.Get(ctx, strings.TrimPrefix(key, "/"))
}

func (s *Service) storageKey(ownerID, ext string) string {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	d := now().UTC()
	return fmt.Sprintf("art/%s/%d/%02d/%s%s", ownerID, d.Year(), int(d.Month()), uuid.NewString(), ext)
}
