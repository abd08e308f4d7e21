package provider

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/mediastash/internal/compress"
	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/stasherr"
)

func newTestEncryption(t *testing.T, cipher Cipher, password string) *Encryption {
	t.Helper()
	e, err := NewEncryption(EncryptionConfig{Password: password, Cipher: cipher, WorkFactor: 10})
	require.NoError(t, err)
	return e
}

func TestEncryptionRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0, 1, 2, 3}, 10000),
	}
	for _, cipher := range []Cipher{CipherAge, CipherXChaCha} {
		t.Run(string(cipher), func(t *testing.T) {
			e := newTestEncryption(t, cipher, "test")
			for _, in := range inputs {
				sealed, err := e.Forward(in)
				require.NoError(t, err)
				assert.False(t, len(in) > 0 && bytes.Equal(sealed, in))

				out, err := e.Reverse(sealed)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(in, out))
			}
		})
	}
}

func TestEncryptionArmoredAge(t *testing.T) {
	e, err := NewEncryption(EncryptionConfig{Password: "test", WorkFactor: 10, Armor: true})
	require.NoError(t, err)

	sealed, err := e.Forward([]byte("payload"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(sealed, []byte("-----BEGIN AGE ENCRYPTED FILE-----")))

	// armor is detected on the way back, so a plain reader opens it too
	out, err := newTestEncryption(t, CipherAge, "test").Reverse(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), out)
}

func TestEncryptionWrongPassword(t *testing.T) {
	for _, cipher := range []Cipher{CipherAge, CipherXChaCha} {
		t.Run(string(cipher), func(t *testing.T) {
			sealed, err := newTestEncryption(t, cipher, "right").Forward([]byte("payload"))
			require.NoError(t, err)

			_, err = newTestEncryption(t, cipher, "wrong").Reverse(sealed)
			assert.ErrorIs(t, err, stasherr.ErrDecrypt)
		})
	}
}

func TestEncryptionNames(t *testing.T) {
	e := newTestEncryption(t, CipherXChaCha, "pw")
	assert.Equal(t, "encrypt-xchacha", e.ID())
	assert.Equal(t, "a.jpg.sec", e.ForwardName("a.jpg"))

	name, err := e.ReverseName("a.jpg.sec")
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", name)

	for _, bad := range []string{"a.jpg", ".sec", ""} {
		_, err := e.ReverseName(bad)
		assert.ErrorIs(t, err, stasherr.ErrSuffixMissing, bad)
	}
}

func TestEncryptionConfigErrors(t *testing.T) {
	_, err := NewEncryption(EncryptionConfig{})
	assert.True(t, stasherr.IsConfig(err))

	_, err = NewEncryption(EncryptionConfig{Password: "x", Cipher: "rot13"})
	assert.True(t, stasherr.IsConfig(err))

	e, err := NewEncryption(EncryptionConfig{Password: "x", Suffix: ".enc", Cipher: CipherXChaCha})
	require.NoError(t, err)
	assert.Equal(t, ".enc", e.Suffix())
}

func TestCompressionGate(t *testing.T) {
	c, err := NewCompression(CompressionConfig{})
	require.NoError(t, err)
	assert.Equal(t, "compress-zstd", c.ID())

	tests := []struct {
		name string
		want bool
	}{
		{"photo.jpg", true},
		{"PHOTO.JPG", true},
		{"clip.mp4", true},
		{"notes.txt", false},
		{"archive", false},
		{"photo.jpg.sec", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Applies(media.New(tt.name, nil)))
		})
	}
}

func TestCompressionCustomAllowlist(t *testing.T) {
	c, err := NewCompression(CompressionConfig{SupportedExtensions: []string{"TXT", " .log "}, Algorithm: compress.LZ4})
	require.NoError(t, err)
	assert.Equal(t, "compress-lz4", c.ID())
	assert.True(t, c.Applies(media.New("a.txt", nil)))
	assert.True(t, c.Applies(media.New("a.log", nil)))
	assert.False(t, c.Applies(media.New("a.jpg", nil)))

	none, err := NewCompression(CompressionConfig{SupportedExtensions: []string{}})
	require.NoError(t, err)
	assert.False(t, none.Applies(media.New("a.jpg", nil)))

	_, err = NewCompression(CompressionConfig{Algorithm: "brotli"})
	assert.True(t, stasherr.IsConfig(err))
}

func TestCompressionRoundTrip(t *testing.T) {
	c, err := NewCompression(CompressionConfig{})
	require.NoError(t, err)

	in := bytes.Repeat([]byte("media "), 1000)
	out, err := c.Forward(in)
	require.NoError(t, err)
	assert.Less(t, len(out), len(in))

	back, err := c.Reverse(out)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestValidateID(t *testing.T) {
	for _, ok := range []string{"encrypt-age", "compress-zstd", "x1"} {
		assert.NoError(t, ValidateID(ok), ok)
	}
	for _, bad := range []string{"", "Upper", "has_underscore", "-lead", "sp ace"} {
		assert.Error(t, ValidateID(bad), bad)
	}
}

func TestDescriptorDefaults(t *testing.T) {
	d := &Descriptor{Name: "noop"}
	out, err := d.Forward([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), out)
	assert.True(t, d.Applies(media.New("a", nil)))
}
