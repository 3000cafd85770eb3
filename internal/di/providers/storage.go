package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/config"
	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/media/photos"
)

// ProvidePhotoService provides photo storage on the configured driver.
func ProvidePhotoService(i do.Injector) (*photos.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	backend, err := openPhotoBackend(cfg.Photos)
	if err != nil {
		return nil, err
	}

	log.Info("Photo storage initialized",
		"driver", backend.Driver(),
		"max_bytes", cfg.Photos.MaxBytes,
	)

	return photos.NewService(backend, cfg.Photos.MaxBytes, log.Component("photos")), nil
}

func openPhotoBackend(cfg config.PhotoConfig) (photos.Backend, error) {
	switch cfg.Driver {
	case config.PhotoDataURI:
		return photos.NewDataURI(), nil
	case config.PhotoFS:
		fs, err := photos.NewFS(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.PhotoS3:
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		s3, err := photos.NewS3(ctx, photos.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("unknown photo driver %q", cfg.Driver)
	}
}
