package provider

import (
	"fmt"
	"strings"

	"github.com/thebluefowl/mediastash/internal/enc"
	"github.com/thebluefowl/mediastash/internal/stasherr"
)

// Cipher selects the encryption scheme.
type Cipher string

const (
	// CipherAge encrypts each payload as an age file with a scrypt
	// passphrase recipient.
	CipherAge Cipher = "age"
	// CipherXChaCha seals each payload with XChaCha20-Poly1305 under a
	// key derived once from the password.
	CipherXChaCha Cipher = "xchacha"
)

// DefaultSuffix is appended to the name of encrypted media.
const DefaultSuffix = ".sec"

// EncryptionConfig configures the encryption provider.
type EncryptionConfig struct {
	Password string
	Suffix   string
	Cipher   Cipher
	// WorkFactor overrides the age scrypt cost (log2 N). Zero keeps the
	// age default.
	WorkFactor int
	// Armor writes age output as PEM-style text. Ignored for xchacha.
	Armor bool
}

// Encryption is the password-based encryption provider.
type Encryption struct {
	suffix    string
	cipher    Cipher
	age       enc.AgeConfig
	masterKey []byte
}

var (
	_ Provider = (*Encryption)(nil)
	_ Renamer  = (*Encryption)(nil)
)

// NewEncryption validates cfg and prepares the cipher.
func NewEncryption(cfg EncryptionConfig) (*Encryption, error) {
	if cfg.Password == "" {
		return nil, stasherr.NewConfigError("encryption.password", fmt.Errorf("password is required"))
	}
	if cfg.Suffix == "" {
		cfg.Suffix = DefaultSuffix
	}
	if cfg.Cipher == "" {
		cfg.Cipher = CipherAge
	}

	e := &Encryption{suffix: cfg.Suffix, cipher: cfg.Cipher}
	switch cfg.Cipher {
	case CipherAge:
		maxWork := 0
		if cfg.WorkFactor > 0 {
			// decrypt anything we could have produced ourselves
			maxWork = max(cfg.WorkFactor, 22)
		}
		e.age = enc.AgeConfig{
			Passphrase:    cfg.Password,
			WorkFactor:    cfg.WorkFactor,
			MaxWorkFactor: maxWork,
			Armor:         cfg.Armor,
		}
	case CipherXChaCha:
		key, err := enc.MasterKey(cfg.Password)
		if err != nil {
			return nil, stasherr.NewConfigError("encryption.password", err)
		}
		e.masterKey = key
	default:
		return nil, stasherr.NewConfigError("encryption.cipher", fmt.Errorf("unknown cipher %q", cfg.Cipher))
	}
	return e, nil
}

// ID is stable per cipher so objects sealed with one scheme are never
// fed to the other.
func (e *Encryption) ID() string { return "encrypt-" + string(e.cipher) }

// Suffix returns the configured name suffix.
func (e *Encryption) Suffix() string { return e.suffix }

func (e *Encryption) Forward(data []byte) ([]byte, error) {
	switch e.cipher {
	case CipherXChaCha:
		return enc.SealBlob(data, e.masterKey)
	default:
		return enc.SealAge(data, e.age)
	}
}

func (e *Encryption) Reverse(data []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch e.cipher {
	case CipherXChaCha:
		out, err = enc.OpenBlob(data, e.masterKey)
	default:
		out, err = enc.OpenAge(data, e.age)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stasherr.ErrDecrypt, err)
	}
	return out, nil
}

func (e *Encryption) ForwardName(name string) string {
	return name + e.suffix
}

func (e *Encryption) ReverseName(name string) (string, error) {
	if !strings.HasSuffix(name, e.suffix) || len(name) == len(e.suffix) {
		return "", fmt.Errorf("%w: %q lacks %q", stasherr.ErrSuffixMissing, name, e.suffix)
	}
	return strings.TrimSuffix(name, e.suffix), nil
}
