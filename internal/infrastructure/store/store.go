package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartshop/backend/internal/domain"
)

// Backend types
const (
	TypeFile   = "file"
	TypeS3     = "s3"
	TypeSQLite = "sqlite"
)

// Config selects and configures a slot store backend
type Config struct {
	Type       string
	Dir        string
	S3Bucket   string
	S3Prefix   string
	SQLitePath string
}

// Store is a slot store that may hold resources
type Store interface {
	domain.SlotStore
	Close() error
}

// Open builds the backend named by cfg.Type. s3Client is only used by the s3 backend.
func Open(ctx context.Context, cfg Config, s3Client S3API) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", TypeFile:
		return NewFileStore(cfg.Dir)
	case TypeS3:
		if s3Client == nil {
			return nil, fmt.Errorf("s3 store requires an s3 client")
		}
		return NewS3Store(s3Client, cfg.S3Bucket, cfg.S3Prefix)
	case TypeSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("slot key is required")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("invalid slot key %q", key)
	}
	return nil
}
