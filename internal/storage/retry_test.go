package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/mediastash/internal/storage"
	"github.com/thebluefowl/mediastash/internal/storage/memstore"
)

func fastRetry(attempts int) storage.RetryConfig {
	return storage.RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"throttled", errors.New("api error SlowDown: reduce your request rate"), true},
		{"denied", errors.New("AccessDenied: nope"), false},
		{"missing key", errors.New("NoSuchKey: gone"), false},
		{"canceled", context.Canceled, false},
		{"unknown", errors.New("something odd"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.IsRetryableError(tt.err))
		})
	}
}

func TestWithRetryRecovers(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	err := storage.WithRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	err := storage.WithRetry(context.Background(), fastRetry(2), func() error {
		calls++
		return errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := errors.New("AccessDenied")
	err := storage.WithRetry(context.Background(), fastRetry(5), func() error {
		calls++
		return perm
	})
	assert.ErrorIs(t, err, perm)
	assert.Equal(t, 1, calls)
}

func TestRetryingBackendPut(t *testing.T) {
	store := memstore.New()
	failures := 1
	store.PutHook = func(_, _ string) error {
		if failures > 0 {
			failures--
			return errors.New("broken pipe")
		}
		return nil
	}
	b := storage.NewRetrying(store, fastRetry(3))

	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "bucket", "a/1.jpg", []byte("x"), nil, storage.ACLPrivate))

	data, _, err := b.Get(ctx, "bucket", "a/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, "mem://bucket/a/1.jpg", b.URL("bucket", "a/1.jpg"))
}

func TestParseACLAndMetadata(t *testing.T) {
	assert.Equal(t, storage.ACLPrivate, storage.ParseACL("Private"))
	assert.Equal(t, storage.ACLPublicRead, storage.ParseACL(""))
	assert.Equal(t, map[string]string{"encrypt-age": "encrypt-age"},
		storage.NormalizeMetadata(map[string]string{"Encrypt-Age": "encrypt-age"}))
}
