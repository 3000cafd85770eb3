package photos

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/errors"
)

// Photo describes a stored upload.
type Photo struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	BlurHash    string `json:"blurHash,omitempty"`
}

// Service validates uploads and hands them to a Backend.
type Service struct {
	backend  Backend
	maxBytes int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a photo service. maxBytes <= 0 disables the size check.
func NewService(backend Backend, maxBytes int, logger *slog.Logger) *Service {
	return &Service{
		backend:  backend,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// Driver reports the backend in use.
func (s *Service) Driver() Driver { return s.backend.Driver() }

// Upload stores an image for user. Non-image payloads and oversized files
// are rejected with a validation error.
func (s *Service) Upload(ctx context.Context, user *domain.User, filename string, data []byte) (*Photo, error) {
	if user == nil {
		return nil, errors.ErrAuthenticationRequired
	}
	if len(data) == 0 {
		return nil, errors.Validation("photo is empty")
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return nil, errors.Validationf("photo exceeds %d bytes", s.maxBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, errors.Validationf("unsupported photo type %s", mt.String())
	}

	key := Key(user.ID, filename, mt.Extension(), s.now())

	hash, err := ComputeBlurHash(data)
	if err != nil {
		// SVG and other formats without a Go decoder still upload.
		s.logger.Warn("failed to compute blurhash", "key", key, "error", err)
	}

	ref, err := s.backend.Put(ctx, key, data, mt.String())
	if err != nil {
		s.logger.Error("failed to store photo", "key", key, "driver", s.backend.Driver(), "error", err)
		return nil, errors.StorageWrite(err)
	}

	s.logger.Info("photo uploaded", "key", key, "driver", s.backend.Driver(), "size", len(data))
	return &Photo{
		URL:         ref,
		Key:         key,
		ContentType: mt.String(),
		Size:        len(data),
		BlurHash:    hash,
	}, nil
}

// Open returns a stored photo by key.
func (s *Service) Open(ctx context.Context, key string) ([]byte, string, error) {
	data, contentType, err := s.backend.Get(ctx, key)
	switch {
	case err == nil:
		return data, contentType, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupported):
		return nil, "", errors.NotFoundf("photo %s not found", key)
	default:
		return nil, "", errors.StorageRead(err)
	}
}

// Delete removes the photo a plant refers to when it is stored under
// userID. References that were not issued by this server (data URIs,
// external URLs) or that belong to another user are ignored.
func (s *Service) Delete(ctx context.Context, userID, ref string) error {
	if !OwnedBy(ref, userID) {
		if IsServerRef(ref) {
			s.logger.Warn("refusing to delete photo of another user", "ref", ref, "user_id", userID)
		}
		return nil
	}
	key := strings.TrimPrefix(ref, ServePrefix)
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete photo", "key", key, "error", err)
		return errors.StorageWrite(err)
	}
	return nil
}

// IsServerRef reports whether ref is a photo URL issued by Upload.
func IsServerRef(ref string) bool {
	return strings.HasPrefix(ref, ServePrefix)
}

// OwnedBy reports whether ref is a photo URL issued by Upload for userID.
func OwnedBy(ref, userID string) bool {
	key, ok := strings.CutPrefix(ref, ServePrefix)
	if !ok || userID == "" || path.Clean(key) != key {
		return false
	}
	dir, file := path.Split(key)
	return dir == "plants/"+userID+"/" && file != ""
}

// Key builds the object key plants/{userId}/{unixMillis}.{ext}. The
// extension comes from filename when it has one, else from the sniffed type.
func Key(userID, filename, sniffedExt string, now time.Time) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = strings.TrimPrefix(sniffedExt, ".")
	}
	ext = strings.ToLower(ext)
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("plants/%s/%d.%s", userID, now.UnixMilli(), ext)
}
