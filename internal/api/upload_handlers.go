package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/media/photos"
)

func (s *Server) registerUploadRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "uploadPhoto",
		Method:        http.MethodPost,
		Path:          "/api/v1/upload",
		Summary:       "Upload photo",
		Description:   "Stores a plant photo and returns a reference for the plant's photo field, with a BlurHash placeholder",
		Tags:          []string{"Photos"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.photoBodyLimit(),
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleUploadPhoto)
}

// UploadPhotoRequest is the request body for a photo upload.
type UploadPhotoRequest struct {
	Filename string `json:"filename,omitempty" validate:"omitempty,max=255" doc:"Original file name; its extension names the stored object"`
	Data     []byte `json:"data" doc:"Image bytes, base64 encoded"`
}

// UploadPhotoInput wraps the upload request for Huma.
type UploadPhotoInput struct {
	Body UploadPhotoRequest
}

// UploadPhotoOutput wraps the stored photo for Huma.
type UploadPhotoOutput struct {
	Body photos.Photo
}

func (s *Server) handleUploadPhoto(ctx context.Context, input *UploadPhotoInput) (*UploadPhotoOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	photo, err := s.services.Photos.Upload(ctx, user, input.Body.Filename, input.Body.Data)
	if err != nil {
		return nil, err
	}
	return &UploadPhotoOutput{Body: *photo}, nil
}

// handleGetPhoto serves photos stored by the fs and s3 drivers.
// Photo URLs end up in <img> tags, so this route takes no token; keys
// are scoped by user ID and upload time.
func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, photos.ServePrefix)
	if key == "" || s.services.Photos == nil {
		writeError(w, http.StatusNotFound, string(domainerrors.CodeNotFound), "photo not found")
		return
	}

	data, contentType, err := s.services.Photos.Open(r.Context(), key)
	if err != nil {
		if apiErr := toAPIError(err); apiErr != nil {
			writeError(w, apiErr.status, apiErr.Code, apiErr.Message)
			return
		}
		s.logger.Error("failed to open photo", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, string(domainerrors.CodeInternal), "failed to read photo")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// Keys are never reused, so the bytes behind a URL never change.
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("photo write failed", "key", key, "error", err)
	}
}
