// Package blob stores uploaded images and signatures and hands back public URLs.
package blob

import (
	"context"
	"fmt"
	"log"

	"itops-backend/internal/platform/config"
)

type Store interface {
	// Put writes data under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.Driver.
func New(cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "oss":
		return NewOSS(cfg)
	case "memory":
		return NewMemory(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// DeleteQuietly removes keys uploaded ahead of a write that failed.
// Errors are logged only; it keeps going after the request context ends.
func DeleteQuietly(ctx context.Context, s Store, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := s.Delete(ctx, k); err != nil {
			log.Printf("[WARN] blob cleanup %s: %v", k, err)
		}
	}
}
