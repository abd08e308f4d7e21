package enc

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// ErrAuth is returned when a ciphertext does not authenticate under the
// supplied password.
var ErrAuth = errors.New("enc: authentication failed")

const (
	// BlobVersion is the first byte of every sealed blob and part of
	// the AAD.
	BlobVersion byte = 0x01

	saltSize = 16

	// BlobOverhead is version + salt + nonce + tag.
	BlobOverhead = 1 + saltSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

	pbkdf2Iterations = 100000
)

var (
	masterSalt = []byte("mediastash-master-salt-v1")
	blobInfo   = []byte("mediastash/blob")
	blobAAD    = []byte("mediastash.v1")
)

// MasterKey derives the password master key. It is deliberately slow;
// derive once per provider and reuse.
func MasterKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("enc: password required")
	}
	return pbkdf2.Key([]byte(password), masterSalt, pbkdf2Iterations, chacha20poly1305.KeySize, sha256.New), nil
}

// deriveBlobKey expands the master key with a per-blob salt so no two
// blobs share a data key.
func deriveBlobKey(masterKey, salt []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, salt, blobInfo)
	k := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, k); err != nil {
		return nil, fmt.Errorf("enc: hkdf: %w", err)
	}
	return k, nil
}

// SealBlob encrypts plaintext with XChaCha20-Poly1305:
//
//	[version 1][salt 16][nonce 24][ciphertext+tag]
func SealBlob(plaintext, masterKey []byte) ([]byte, error) {
	if len(masterKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("enc: master key must be %d bytes", chacha20poly1305.KeySize)
	}

	header := make([]byte, 1+saltSize+chacha20poly1305.NonceSizeX, BlobOverhead+len(plaintext))
	header[0] = BlobVersion
	if _, err := io.ReadFull(rand.Reader, header[1:]); err != nil {
		return nil, fmt.Errorf("enc: random salt/nonce: %w", err)
	}
	salt := header[1 : 1+saltSize]
	nonce := header[1+saltSize:]

	key, err := deriveBlobKey(masterKey, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("enc: cipher: %w", err)
	}
	return aead.Seal(header, nonce, plaintext, aad(header[0])), nil
}

// OpenBlob reverses SealBlob.
func OpenBlob(blob, masterKey []byte) ([]byte, error) {
	if len(blob) < BlobOverhead {
		return nil, fmt.Errorf("%w: blob is %d bytes, minimum is %d", ErrAuth, len(blob), BlobOverhead)
	}
	if blob[0] != BlobVersion {
		return nil, fmt.Errorf("%w: unsupported blob version %d", ErrAuth, blob[0])
	}
	salt := blob[1 : 1+saltSize]
	nonce := blob[1+saltSize : 1+saltSize+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+saltSize+chacha20poly1305.NonceSizeX:]

	key, err := deriveBlobKey(masterKey, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("enc: cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad(blob[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return plaintext, nil
}

func aad(version byte) []byte {
	out := make([]byte, 0, 1+len(blobAAD))
	out = append(out, version)
	return append(out, blobAAD...)
}
