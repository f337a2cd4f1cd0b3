package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/coursemedia-backend/internal/platform/gcp"
	"github.com/yungbote/coursemedia-backend/internal/platform/localstore"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

func stubMediaBucket(t *testing.T) (*gcp.MediaBucket, *gcp.StorageConfig) {
	t.Helper()
	orig := newMediaBucket
	t.Cleanup(func() { newMediaBucket = orig })

	var captured gcp.StorageConfig
	expected := &gcp.MediaBucket{}
	newMediaBucket = func(_ context.Context, _ *logger.Logger, cfg gcp.StorageConfig) (*gcp.MediaBucket, error) {
		captured = cfg
		return expected, nil
	}
	return expected, &captured
}

func clearStorageEnv(t *testing.T) {
	for _, k := range []string{"GCS_STORAGE_MODE", "GCS_BUCKET_NAME", "STORAGE_EMULATOR_HOST", "MEDIA_PUBLIC_BASE_URL", "MEDIA_CDN_DOMAIN", "GCS_PUBLIC_READ"} {
		t.Setenv(k, "")
	}
}

func requireBootstrapCode(t *testing.T, err error, want StorageProviderBootstrapErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("resolveMediaStore: expected error, got nil")
	}
	var got *StorageProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
	}
	if got.Code != want {
		t.Fatalf("code: want=%q got=%q", want, got.Code)
	}
}

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		src  error
		want StorageProviderBootstrapErrorCode
	}{
		{&gcp.StorageConfigError{Code: gcp.StorageConfigErrorInvalidMode, Value: "bad"}, StorageProviderBootstrapErrorInvalidMode},
		{&gcp.StorageConfigError{Code: gcp.StorageConfigErrorMissingBucket}, StorageProviderBootstrapErrorMissingBucket},
		{&gcp.StorageConfigError{Code: gcp.StorageConfigErrorMissingEmulatorHost}, StorageProviderBootstrapErrorMissingEmulatorHost},
		{&gcp.StorageConfigError{Code: gcp.StorageConfigErrorInvalidURL, Value: "x"}, StorageProviderBootstrapErrorInvalidURL},
		{errors.New("dial tcp: connection refused"), StorageProviderBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		err := classifyStorageProviderBootstrapError(gcp.StorageConfig{Mode: gcp.StorageModeGCS}, tc.src)
		if got := storageProviderBootstrapErrorCode(err); got != tc.want {
			t.Fatalf("code for %v: want=%q got=%q", tc.src, tc.want, got)
		}
		if !errors.Is(err, tc.src) {
			t.Fatalf("classified error should wrap its cause")
		}
	}
}

func TestResolveMediaStoreLocal(t *testing.T) {
	root := t.TempDir()
	b, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: MediaStoreLocal, MediaRoot: root})
	if err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
	if _, ok := b.Store.(*localstore.Store); !ok {
		t.Fatalf("store: want *localstore.Store got=%T", b.Store)
	}
	if b.LocalRoot != root || b.Bucket != nil {
		t.Fatalf("local backend: root=%q bucket=%v", b.LocalRoot, b.Bucket)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestResolveMediaStoreInvalidMode(t *testing.T) {
	_, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: "s3"})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorInvalidMode)
}

func TestResolveMediaStoreGCSMode(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("GCS_BUCKET_NAME", "course-media")
	expected, captured := stubMediaBucket(t)

	b, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: MediaStoreGCS})
	if err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
	if b.Bucket != expected || b.Store != expected {
		t.Fatalf("bucket: expected stub bucket instance")
	}
	if captured.Mode != gcp.StorageModeGCS || captured.Bucket != "course-media" {
		t.Fatalf("config: got %+v", *captured)
	}
}

func TestResolveMediaStoreGCSEmulatorMode(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("GCS_BUCKET_NAME", "course-media")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")
	_, captured := stubMediaBucket(t)

	if _, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: MediaStoreGCSEmulator}); err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
	if captured.Mode != gcp.StorageModeGCSEmulator {
		t.Fatalf("mode: want=%q got=%q", gcp.StorageModeGCSEmulator, captured.Mode)
	}
	if captured.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host: want=%q got=%q", "http://fake-gcs:4443", captured.EmulatorHost)
	}
	if captured.CompatibilityFallback {
		t.Fatalf("explicit emulator mode should not be a compatibility fallback")
	}
}

func TestResolveMediaStoreMissingEmulatorHost(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("GCS_BUCKET_NAME", "course-media")
	stubMediaBucket(t)

	_, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: MediaStoreGCSEmulator})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorMissingEmulatorHost)
}

func TestResolveMediaStoreInvalidEmulatorHost(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("GCS_BUCKET_NAME", "course-media")
	t.Setenv("STORAGE_EMULATOR_HOST", "not-a-url")
	stubMediaBucket(t)

	_, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: MediaStoreGCSEmulator})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorInvalidURL)
}

func TestResolveMediaStoreMissingBucket(t *testing.T) {
	clearStorageEnv(t)
	stubMediaBucket(t)

	_, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: MediaStoreGCS})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorMissingBucket)
}

func TestResolveMediaStoreConnectFailed(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("GCS_BUCKET_NAME", "course-media")
	orig := newMediaBucket
	t.Cleanup(func() { newMediaBucket = orig })
	newMediaBucket = func(context.Context, *logger.Logger, gcp.StorageConfig) (*gcp.MediaBucket, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, err := resolveMediaStore(context.Background(), logger.Nop(), Config{MediaStore: MediaStoreGCS})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorConnectFailed)
}
