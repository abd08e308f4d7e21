package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thebluefowl/mediastash/internal/repository"
	"github.com/thebluefowl/mediastash/internal/stasherr"
	"github.com/thebluefowl/mediastash/internal/storage"
	"github.com/thebluefowl/mediastash/internal/storage/azure"
	"github.com/thebluefowl/mediastash/internal/storage/memstore"
	"github.com/thebluefowl/mediastash/internal/storage/minio"
	"github.com/thebluefowl/mediastash/internal/storage/s3"
)

// b2Endpoint is the S3-compatible endpoint for a Backblaze B2 region.
func b2Endpoint(region string) string {
	return fmt.Sprintf("https://s3.%s.backblazeb2.com", region)
}

// Opener returns a repository.Opener for the configured backend. Remote
// backends are wrapped in the retrying decorator.
func (c *Config) Opener(logger *slog.Logger) repository.Opener {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(ctx context.Context, rc repository.Config) (storage.Backend, error) {
		var (
			b   storage.Backend
			err error
		)
		switch c.Backend {
		case BackendMemory:
			return memstore.New(), nil
		case BackendS3, BackendB2:
			endpoint := c.S3.Endpoint
			if c.Backend == BackendB2 && endpoint == "" {
				endpoint = b2Endpoint(c.S3.Region)
			}
			b, err = s3.New(ctx, s3.Opts{
				Region:       c.S3.Region,
				Endpoint:     endpoint,
				AccessKey:    rc.Account.Key,
				SecretKey:    rc.Account.Secret,
				SessionToken: rc.Account.Token,
				PublicBase:   c.S3.PublicBase,
				PublicBucket: rc.RootContainer,
				PartSizeMB:   c.S3.PartSizeMB,
				Concurrency:  c.S3.Concurrency,
			})
		case BackendMinio:
			b, err = minio.New(ctx, minio.Opts{
				Endpoint:      c.Minio.Endpoint,
				AccessKey:     rc.Account.Key,
				SecretKey:     rc.Account.Secret,
				Token:         rc.Account.Token,
				UseSSL:        c.Minio.UseSSL,
				PublicBase:    c.Minio.PublicBase,
				PublicBucket:  rc.RootContainer,
				EnsureBuckets: []string{rc.RootContainer},
				PublicRead:    rc.ACL == storage.ACLPublicRead,
				Logger:        logger,
			})
		case BackendAzure:
			b, err = azure.New(rc.ConnectionString)
		default:
			return nil, fmt.Errorf("%w: %q", stasherr.ErrUnsupportedBackend, c.Backend)
		}
		if err != nil {
			return nil, err
		}

		retry := c.RetryConfig()
		retry.OnRetry = func(attempt int, err error, next time.Duration) {
			logger.Warn("retrying backend call", "attempt", attempt, "error", err, "next_delay", next)
		}
		return storage.NewRetrying(b, retry), nil
	}
}
