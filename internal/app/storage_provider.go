package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/gcp"
	"github.com/yungbote/coursemedia-backend/internal/platform/localstore"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

var (
	newMediaBucket       = gcp.NewMediaBucket
	storageConfigFromEnv = gcp.StorageConfigFromEnv
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidURL          StorageProviderBootstrapErrorCode = "invalid_url"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "media storage bootstrap failed"
	}
	return fmt.Sprintf(
		"media storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// mediaBackend is the selected MediaStore. Bucket is set for the GCS modes
// and doubles as the Vertex video stager; LocalRoot is set for local mode and
// is served under /media.
type mediaBackend struct {
	Store     content.MediaStore
	Bucket    *gcp.MediaBucket
	LocalRoot string
}

func (b mediaBackend) Close() error {
	if b.Bucket != nil {
		return b.Bucket.Close()
	}
	return nil
}

func resolveMediaStore(ctx context.Context, log *logger.Logger, cfg Config) (mediaBackend, error) {
	metrics := observability.Current()
	switch cfg.MediaStore {
	case MediaStoreLocal, "":
		store, err := localstore.New(log, cfg.MediaRoot, cfg.MediaPublicBaseURL)
		if err != nil {
			metrics.ObserveBootstrap("media_store", MediaStoreLocal, "error", string(StorageProviderBootstrapErrorConnectFailed))
			return mediaBackend{}, &StorageProviderBootstrapError{
				Code:  StorageProviderBootstrapErrorConnectFailed,
				Mode:  MediaStoreLocal,
				Cause: err,
			}
		}
		log.Info("Selecting media store", "mode", MediaStoreLocal, "root", store.Root())
		metrics.ObserveBootstrap("media_store", MediaStoreLocal, "success", "none")
		return mediaBackend{Store: store, LocalRoot: store.Root()}, nil
	case MediaStoreGCS, MediaStoreGCSEmulator:
	default:
		err := &StorageProviderBootstrapError{
			Code:  StorageProviderBootstrapErrorInvalidMode,
			Mode:  cfg.MediaStore,
			Cause: fmt.Errorf("unsupported MEDIA_STORE %q", cfg.MediaStore),
		}
		metrics.ObserveBootstrap("media_store", cfg.MediaStore, "error", string(err.Code))
		log.Error("Media store selection failed", "mode", cfg.MediaStore, "error_code", err.Code, "error", err)
		return mediaBackend{}, err
	}

	storageCfg, err := storageConfigFromEnv()
	if cfg.MediaStore == MediaStoreGCSEmulator && !storageCfg.IsEmulatorMode() {
		storageCfg.Mode = gcp.StorageModeGCSEmulator
		storageCfg.CompatibilityFallback = false
		err = gcp.ValidateStorageConfig(storageCfg)
	}
	if err == nil {
		log.Info(
			"Selecting media store",
			"mode", storageCfg.Mode,
			"mode_source", storageCfg.ModeSource(),
			"compatibility_fallback", storageCfg.CompatibilityFallback,
			"emulator_host", storageCfg.EmulatorHost,
		)
		var bucket *gcp.MediaBucket
		bucket, err = newMediaBucket(ctx, log, storageCfg)
		if err == nil {
			metrics.ObserveBootstrap("media_store", string(storageCfg.Mode), "success", "none")
			return mediaBackend{Store: bucket, Bucket: bucket}, nil
		}
	}

	classified := classifyStorageProviderBootstrapError(storageCfg, err)
	code := storageProviderBootstrapErrorCode(classified)
	metrics.ObserveBootstrap("media_store", string(storageCfg.Mode), "error", string(code))
	log.Error(
		"Media store bootstrap failed",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"error_code", code,
		"error", classified,
	)
	return mediaBackend{}, classified
}

func classifyStorageProviderBootstrapError(storageCfg gcp.StorageConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.StorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.StorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.StorageConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingBucket
		case gcp.StorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.StorageConfigErrorInvalidURL:
			code = StorageProviderBootstrapErrorInvalidURL
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
