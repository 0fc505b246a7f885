package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/config"
)

func TestNewDatabaseDriver(t *testing.T) {
	for _, driver := range []string{"", BackendDatabase} {
		s, err := New(context.Background(), config.StorageConfig{Driver: driver})
		require.NoError(t, err)
		assert.Nil(t, s)
	}
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestNewMinIOValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"missing endpoint", config.MinIOConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"}, "endpoint"},
		{"missing credentials", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"}, "credentials"},
		{"missing bucket", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), config.StorageConfig{Driver: BackendMinIO, MinIO: tt.cfg})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewGCSRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: BackendGCS})
	assert.ErrorContains(t, err, "bucket is required")
}
