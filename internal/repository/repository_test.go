package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/provider"
	"github.com/thebluefowl/mediastash/internal/stasherr"
	"github.com/thebluefowl/mediastash/internal/storage"
	"github.com/thebluefowl/mediastash/internal/storage/memstore"
)

const root = "media"

func chain(t *testing.T, password string) []provider.Provider {
	t.Helper()
	c, err := provider.NewCompression(provider.CompressionConfig{})
	require.NoError(t, err)
	e, err := provider.NewEncryption(provider.EncryptionConfig{
		Password: password,
		Cipher:   provider.CipherXChaCha,
	})
	require.NoError(t, err)
	return []provider.Provider{c, e}
}

func newRepo(t *testing.T, store *memstore.Store, opts ...Option) *Repository {
	t.Helper()
	repo, err := New(Config{RootContainer: root}, store, opts...)
	require.NoError(t, err)
	return repo
}

func TestStashRetrieveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := newRepo(t, store, WithProviders(chain(t, "hunter2")...))

	photo := []byte("raw-pixels-raw-pixels-raw-pixels")
	note := []byte("plain text notes")
	c := media.NewContainer("albums/2020",
		media.New("a.JPG", photo),
		media.New("b.txt", note),
	)
	require.NoError(t, repo.StashContainer(ctx, c, ""))

	assert.Equal(t, []string{"albums/2020/a.JPG.sec", "albums/2020/b.txt.sec"}, store.Keys(root))
	assert.Equal(t, "a.JPG.sec", c.Media[0].Name)
	assert.Equal(t, "mem://media/albums/2020/a.JPG.sec", c.Media[0].URI)
	assert.True(t, c.Media[0].Tagged("compress-zstd"))
	assert.True(t, c.Media[0].Tagged("encrypt-xchacha"))
	assert.False(t, c.Media[1].Tagged("compress-zstd"))
	assert.True(t, c.Media[1].Tagged("encrypt-xchacha"))

	got, err := repo.RetrieveContainer(ctx, "albums/2020", "")
	require.NoError(t, err)
	require.Len(t, got.Media, 2)
	assert.Equal(t, "a.JPG", got.Media[0].Name)
	assert.Equal(t, photo, got.Media[0].Data)
	assert.Equal(t, "b.txt", got.Media[1].Name)
	assert.Equal(t, note, got.Media[1].Data)
	assert.Equal(t, "mem://media/albums/2020/b.txt.sec", got.Media[1].URI)
}

func TestStashUsesDefaultPublicRead(t *testing.T) {
	store := memstore.New()
	repo := newRepo(t, store)

	_, err := repo.StashMedia(context.Background(), "p", []*media.Media{media.New("x.jpg", []byte("x"))}, "")
	require.NoError(t, err)

	acl, ok := store.ACL(root, "p/x.jpg")
	require.True(t, ok)
	assert.Equal(t, storage.ACLPublicRead, acl)
}

func TestStashMediaLeavesCallerUntouched(t *testing.T) {
	store := memstore.New()
	repo := newRepo(t, store, WithProviders(chain(t, "pw")...))

	in := media.New("clip.raw", []byte("frames"))
	c, err := repo.StashMedia(context.Background(), "/videos/", []*media.Media{in}, "")
	require.NoError(t, err)

	assert.Equal(t, "clip.raw", in.Name)
	assert.Equal(t, []byte("frames"), in.Data)
	assert.Empty(t, in.URI)
	assert.Equal(t, "videos", c.Path)
	assert.Equal(t, "clip.raw.sec", c.Media[0].Name)
	assert.Equal(t, []string{"videos/clip.raw.sec"}, store.Keys(root))
}

func TestStashIntoExplicitContainer(t *testing.T) {
	store := memstore.New()
	repo := newRepo(t, store)

	_, err := repo.StashMedia(context.Background(), "p", []*media.Media{media.New("x.jpg", []byte("x"))}, "other")
	require.NoError(t, err)

	assert.Empty(t, store.Keys(root))
	assert.Equal(t, []string{"p/x.jpg"}, store.Keys("other"))

	got, err := repo.RetrieveMedia(context.Background(), "p", "other")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("x"), got[0].Data)
}

func TestRetrieveOnlyReversesTaggedProviders(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	// Uploaded by something else, without any provider tags.
	require.NoError(t, store.Put(ctx, root, "shared/readme.raw", []byte("as-is"), nil, storage.ACLPrivate))

	repo := newRepo(t, store, WithProviders(chain(t, "pw")...))
	got, err := repo.RetrieveMedia(ctx, "shared", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "readme.raw", got[0].Name)
	assert.Equal(t, []byte("as-is"), got[0].Data)
}

func TestRetrieveDropsEmptyObjects(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Put(ctx, root, "dir/", nil, nil, storage.ACLPrivate))
	require.NoError(t, store.Put(ctx, root, "dir/empty.bin", nil, nil, storage.ACLPrivate))
	require.NoError(t, store.Put(ctx, root, "dir/full.bin", []byte("1"), nil, storage.ACLPrivate))

	repo := newRepo(t, store)
	got, err := repo.RetrieveMedia(ctx, "dir", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "full.bin", got[0].Name)
}

func TestRetrieveDoesNotMatchSiblingPaths(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Put(ctx, root, "a/1.jpg", []byte("1"), nil, storage.ACLPrivate))
	require.NoError(t, store.Put(ctx, root, "ab/2.jpg", []byte("2"), nil, storage.ACLPrivate))
	require.NoError(t, store.Put(ctx, root, "a/sub/3.jpg", []byte("3"), nil, storage.ACLPrivate))

	repo := newRepo(t, store)
	got, err := repo.RetrieveMedia(ctx, "a", "")
	require.NoError(t, err)

	var names []string
	for _, m := range got {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"1.jpg", "sub/3.jpg"}, names)
}

func TestRetrieveEmptyPath(t *testing.T) {
	repo := newRepo(t, memstore.New())
	c, err := repo.RetrieveContainer(context.Background(), "nothing/here", "")
	require.NoError(t, err)
	assert.Equal(t, "nothing/here", c.Path)
	assert.Empty(t, c.Media)
}

func TestRetrieveResolveOnly(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := newRepo(t, store, WithProviders(chain(t, "pw")...))

	_, err := repo.StashMedia(ctx, "p", []*media.Media{media.New("x.jpg", []byte("xyz"))}, "")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, root, "p/marker", nil, nil, storage.ACLPrivate))

	got, err := repo.RetrieveMedia(ctx, "p", "", ResolveOnly())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x.jpg.sec", got[0].Name)
	assert.Equal(t, "mem://media/p/x.jpg.sec", got[0].URI)
	assert.Nil(t, got[0].Data)
}

func TestRetrieveWrongPassword(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, err := newRepo(t, store, WithProviders(chain(t, "right")...)).
		StashMedia(ctx, "p", []*media.Media{media.New("x.raw", []byte("secret"))}, "")
	require.NoError(t, err)

	_, err = newRepo(t, store, WithProviders(chain(t, "wrong")...)).RetrieveMedia(ctx, "p", "")
	require.Error(t, err)
	assert.True(t, stasherr.IsTransform(err))
	assert.ErrorIs(t, err, stasherr.ErrDecrypt)
}

func TestStashAbortsOnFirstFailure(t *testing.T) {
	store := memstore.New()
	boom := errors.New("connection reset")
	store.PutHook = func(_, key string) error {
		if key == "p/2.jpg" {
			return boom
		}
		return nil
	}
	repo := newRepo(t, store)

	c := media.NewContainer("p",
		media.New("1.jpg", []byte("1")),
		media.New("2.jpg", []byte("2")),
		media.New("3.jpg", []byte("3")),
	)
	err := repo.StashContainer(context.Background(), c, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var be *stasherr.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, stasherr.OpPut, be.Op)
	assert.Equal(t, "p/2.jpg", be.Key)

	assert.Equal(t, []string{"p/1.jpg"}, store.Keys(root))
	assert.NotEmpty(t, c.Media[0].URI)
	assert.Empty(t, c.Media[1].URI)
	assert.Empty(t, c.Media[2].URI)
}

func TestStashTransformFailure(t *testing.T) {
	store := memstore.New()
	bad := &provider.Descriptor{
		Name:      "explode",
		ForwardFn: func([]byte) ([]byte, error) { return nil, errors.New("nope") },
	}
	repo := newRepo(t, store, WithProviders(bad))

	_, err := repo.StashMedia(context.Background(), "p", []*media.Media{media.New("x.jpg", []byte("x"))}, "")
	require.Error(t, err)
	assert.True(t, stasherr.IsTransform(err))
	assert.Empty(t, store.Keys(root))
}

func TestStashConcurrent(t *testing.T) {
	store := memstore.New()
	repo := newRepo(t, store, WithConcurrency(4), WithProviders(chain(t, "pw")...))

	var items []*media.Media
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		items = append(items, media.New(n+".raw", []byte("payload "+n)))
	}
	_, err := repo.StashMedia(context.Background(), "many", items, "")
	require.NoError(t, err)
	assert.Len(t, store.Keys(root), 6)

	got, err := repo.RetrieveMedia(context.Background(), "many", "")
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, "a.raw", got[0].Name)
	assert.Equal(t, []byte("payload a"), got[0].Data)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{}, memstore.New())
	assert.ErrorIs(t, err, stasherr.ErrNoRootContainer)
	assert.True(t, stasherr.IsConfig(err))

	_, err = New(Config{RootContainer: root}, nil)
	assert.ErrorIs(t, err, stasherr.ErrNoBackend)

	dup := &provider.Descriptor{Name: "same"}
	_, err = New(Config{RootContainer: root}, memstore.New(), WithProviders(dup, &provider.Descriptor{Name: "same"}))
	assert.ErrorIs(t, err, stasherr.ErrDuplicateProvider)
}

func TestOpenClosesBackendOnFailure(t *testing.T) {
	store := memstore.New()
	opener := func(context.Context, Config) (storage.Backend, error) { return store, nil }

	_, err := Open(context.Background(), Config{RootContainer: root}, opener,
		WithProviders(&provider.Descriptor{Name: "Bad ID"}))
	require.Error(t, err)
	assert.True(t, store.Closed())
}

func TestOpenAndClose(t *testing.T) {
	store := memstore.New()
	opener := func(_ context.Context, cfg Config) (storage.Backend, error) {
		assert.Equal(t, "key", cfg.Account.Key)
		return store, nil
	}
	repo, err := Open(context.Background(), Config{RootContainer: root, Account: Account{Key: "key"}}, opener)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	assert.True(t, store.Closed())

	_, err = Open(context.Background(), Config{RootContainer: root}, func(context.Context, Config) (storage.Backend, error) {
		return nil, errors.New("no credentials")
	})
	assert.True(t, stasherr.IsConfig(err))
}

func TestListObjects(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Put(ctx, root, "a/1", []byte("12"), nil, storage.ACLPrivate))
	repo := newRepo(t, store)

	objs, err := repo.ListObjects(ctx, "", "a/")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, int64(2), objs[0].Size)

	require.NoError(t, store.Close())
	_, err = repo.ListObjects(ctx, "", "a/")
	assert.True(t, stasherr.IsBackend(err))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := memstore.New()
	pad := &provider.Descriptor{
		Name:      "pad",
		ForwardFn: func(b []byte) ([]byte, error) { return append(append([]byte{}, b...), 0), nil },
		ReverseFn: func(b []byte) ([]byte, error) { return b[:len(b)-1], nil },
	}
	repo := newRepo(t, store, WithMetrics(m), WithProviders(pad))

	_, err := repo.StashMedia(context.Background(), "p", []*media.Media{
		media.New("1.jpg", []byte("12")),
		media.New("2.jpg", []byte("345")),
	}, "")
	require.NoError(t, err)
	_, err = repo.RetrieveMedia(context.Background(), "p", "")
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.objectsStashed))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.bytesBeforeStash))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.bytesStashed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.objectsRetrieved))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.bytesRetrieved))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.bytesRestored))

	store.PutHook = func(string, string) error { return errors.New("down") }
	_, err = repo.StashMedia(context.Background(), "p", []*media.Media{media.New("3.jpg", []byte("x"))}, "")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(stasherr.OpPut)))
}

func TestStashForwardFailureOnSecondEntity(t *testing.T) {
	store := memstore.New()
	picky := &provider.Descriptor{
		Name: "picky",
		ForwardFn: func(b []byte) ([]byte, error) {
			if string(b) == "2" {
				return nil, errors.New("cannot transform")
			}
			return b, nil
		},
	}
	repo := newRepo(t, store, WithProviders(picky))

	_, err := repo.StashMedia(context.Background(), "p", []*media.Media{
		media.New("1.jpg", []byte("1")),
		media.New("2.jpg", []byte("2")),
		media.New("3.jpg", []byte("3")),
	}, "")

	var te *stasherr.TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "picky", te.Provider)
	assert.Equal(t, "2.jpg", te.Media)
	assert.Equal(t, []string{"p/1.jpg"}, store.Keys(root))
}
