// internal/enc/age.go
package enc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"
)

const armorPrefix = "-----BEGIN AGE ENCRYPTED FILE-----"

// AgeConfig configures passphrase-based age encryption.
type AgeConfig struct {
	Passphrase string
	// WorkFactor is the scrypt log2(N) used when encrypting. Zero keeps
	// the age default (18). Decryption accepts anything up to
	// MaxWorkFactor.
	WorkFactor    int
	MaxWorkFactor int
	Armor         bool
}

// NewEncryptWriter returns a WriteCloser that encrypts plaintext written to it
// and emits age ciphertext to dst. Call Close() when done to finalize.
func NewEncryptWriter(dst io.Writer, cfg AgeConfig) (io.WriteCloser, error) {
	if cfg.Passphrase == "" {
		return nil, errors.New("age: passphrase required")
	}

	recipient, err := age.NewScryptRecipient(cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("age scrypt: %w", err)
	}
	if cfg.WorkFactor > 0 {
		recipient.SetWorkFactor(cfg.WorkFactor)
	}

	var out io.Writer = dst
	var armorWriter io.WriteCloser
	if cfg.Armor {
		armorWriter = armor.NewWriter(dst)
		out = armorWriter
	}

	wr, err := age.Encrypt(out, recipient)
	if err != nil {
		if armorWriter != nil {
			_ = armorWriter.Close()
		}
		return nil, fmt.Errorf("age encrypt: %w", err)
	}

	// age writer first so the final chunk is sealed before armor closes
	closers := []io.Closer{wr}
	if armorWriter != nil {
		closers = append(closers, armorWriter)
	}
	return &multiCloseWriter{Writer: wr, finals: closers}, nil
}

// NewDecryptReader returns a Reader that yields plaintext from an age
// ciphertext stream. ASCII armor is detected and unwrapped.
func NewDecryptReader(src io.Reader, cfg AgeConfig) (io.Reader, error) {
	if cfg.Passphrase == "" {
		return nil, errors.New("age: passphrase required")
	}

	peek := make([]byte, len(armorPrefix))
	n, err := io.ReadFull(src, peek)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("peek input: %w", err)
	}
	src = io.MultiReader(bytes.NewReader(peek[:n]), src)
	if n == len(armorPrefix) && string(peek) == armorPrefix {
		src = armor.NewReader(src)
	}

	identity, err := age.NewScryptIdentity(cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("age scrypt: %w", err)
	}
	if cfg.MaxWorkFactor > 0 {
		identity.SetMaxWorkFactor(cfg.MaxWorkFactor)
	}
	return age.Decrypt(src, identity)
}

// SealAge encrypts plaintext in one shot.
func SealAge(plaintext []byte, cfg AgeConfig) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewEncryptWriter(&buf, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("age write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age close: %w", err)
	}
	return buf.Bytes(), nil
}

// OpenAge decrypts a ciphertext produced by SealAge. Authentication
// failures are reported as ErrAuth.
func OpenAge(ciphertext []byte, cfg AgeConfig) ([]byte, error) {
	r, err := NewDecryptReader(bytes.NewReader(ciphertext), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return plaintext, nil
}

type multiCloseWriter struct {
	io.Writer
	finals []io.Closer
}

func (m *multiCloseWriter) Close() error {
	var firstErr error
	for _, c := range m.finals {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
