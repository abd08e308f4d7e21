// Package config loads the mediastash configuration file and applies
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thebluefowl/mediastash/internal/compress"
	"github.com/thebluefowl/mediastash/internal/provider"
	"github.com/thebluefowl/mediastash/internal/repository"
	"github.com/thebluefowl/mediastash/internal/stasherr"
	"github.com/thebluefowl/mediastash/internal/storage"
)

var ErrConfigNotFound = errors.New("config not found")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEDIASTASH_"

// PasswordEnv holds the encryption password. It is never written to
// the config file.
const PasswordEnv = EnvPrefix + "PASSWORD"

// Backend names a storage adapter.
type Backend string

const (
	BackendS3     Backend = "s3"
	BackendB2     Backend = "b2"
	BackendMinio  Backend = "minio"
	BackendAzure  Backend = "azure"
	BackendMemory Backend = "memory"
)

// Config is the on-disk configuration, overlaid with environment
// variables by Load.
type Config struct {
	Backend       Backend           `yaml:"backend"`
	RootContainer string            `yaml:"root_container"`
	ACL           string            `yaml:"acl,omitempty"`
	Account       AccountConfig     `yaml:"account,omitempty"`
	S3            S3Config          `yaml:"s3,omitempty"`
	Minio         MinioConfig       `yaml:"minio,omitempty"`
	Azure         AzureConfig       `yaml:"azure,omitempty"`
	Compression   CompressionConfig `yaml:"compression"`
	Encryption    EncryptionConfig  `yaml:"encryption"`
	Retry         RetryConfig       `yaml:"retry,omitempty"`
}

// AccountConfig holds the backend credentials.
type AccountConfig struct {
	Key    string `yaml:"key,omitempty"`
	Secret string `yaml:"secret,omitempty"`
	Token  string `yaml:"token,omitempty"`
}

// S3Config configures the s3 and b2 backends.
type S3Config struct {
	Region      string `yaml:"region,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	PublicBase  string `yaml:"public_base,omitempty"`
	PartSizeMB  int64  `yaml:"part_size_mb,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// MinioConfig configures the minio backend.
type MinioConfig struct {
	Endpoint   string `yaml:"endpoint,omitempty"`
	UseSSL     bool   `yaml:"use_ssl,omitempty"`
	PublicBase string `yaml:"public_base,omitempty"`
}

// AzureConfig configures the azure backend.
type AzureConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`
}

// CompressionConfig configures the compression provider.
type CompressionConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Algorithm string `yaml:"algorithm,omitempty"`
	// SupportedExtensions replaces the default allowlist when set.
	SupportedExtensions []string `yaml:"supported_extensions,omitempty"`
}

// EncryptionConfig selects the cipher for the encryption provider.
type EncryptionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cipher  string `yaml:"cipher,omitempty"`
	Suffix  string `yaml:"suffix,omitempty"`
	// Armor stores age ciphertext as ASCII text.
	Armor bool `yaml:"armor,omitempty"`
}

// RetryConfig bounds the retries around backend calls. Zero values
// take the storage defaults.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
}

// Default returns the configuration used before any file or
// environment is applied.
func Default() *Config {
	return &Config{
		Backend: BackendS3,
		ACL:     string(storage.ACLPublicRead),
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: string(compress.Zstd),
		},
		Encryption: EncryptionConfig{
			Enabled: true,
			Cipher:  string(provider.CipherAge),
			Suffix:  provider.DefaultSuffix,
		},
	}
}

// DefaultPath is config.yaml under the user config directory, which
// honours XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "mediastash", "config.yaml"), nil
}

func resolve(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultPath()
}

// Exists reports whether a config file is present at path, or at the
// default location when path is empty.
func Exists(path string) bool {
	path, err := resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config file, then a .env file from the working
// directory if there is one, then MEDIASTASH_* variables. A missing
// file is only an error when the environment does not select a
// backend either.
func Load(path string) (*Config, error) {
	path, err := resolve(path)
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if os.Getenv(EnvPrefix+"BACKEND") == "" {
			return nil, ErrConfigNotFound
		}
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *Config, path string) error {
	path, err := resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"ROOT_CONTAINER":          &c.RootContainer,
		"ACL":                     &c.ACL,
		"ACCOUNT_KEY":             &c.Account.Key,
		"ACCOUNT_SECRET":          &c.Account.Secret,
		"ACCOUNT_TOKEN":           &c.Account.Token,
		"S3_REGION":               &c.S3.Region,
		"S3_ENDPOINT":             &c.S3.Endpoint,
		"S3_PUBLIC_BASE":          &c.S3.PublicBase,
		"MINIO_ENDPOINT":          &c.Minio.Endpoint,
		"MINIO_PUBLIC_BASE":       &c.Minio.PublicBase,
		"AZURE_CONNECTION_STRING": &c.Azure.ConnectionString,
		"COMPRESSION_ALGORITHM":   &c.Compression.Algorithm,
		"ENCRYPTION_CIPHER":       &c.Encryption.Cipher,
		"ENCRYPTION_SUFFIX":       &c.Encryption.Suffix,
	}
	for name, dst := range strs {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv(EnvPrefix + "BACKEND"); v != "" {
		c.Backend = Backend(strings.ToLower(v))
	}

	bools := map[string]*bool{
		"MINIO_USE_SSL":       &c.Minio.UseSSL,
		"COMPRESSION_ENABLED": &c.Compression.Enabled,
		"ENCRYPTION_ENABLED":  &c.Encryption.Enabled,
		"ENCRYPTION_ARMOR":    &c.Encryption.Armor,
	}
	for name, dst := range bools {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return stasherr.NewConfigError(EnvPrefix+name, err)
		}
		*dst = b
	}

	if v := os.Getenv(EnvPrefix + "COMPRESSION_EXTENSIONS"); v != "" {
		c.Compression.SupportedExtensions = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	if c.RootContainer == "" {
		return stasherr.NewConfigError("root_container", stasherr.ErrNoRootContainer)
	}
	switch c.Backend {
	case BackendS3, BackendMemory:
	case BackendB2:
		if c.S3.Endpoint == "" && c.S3.Region == "" {
			return stasherr.NewConfigError("s3.region", errors.New("b2 needs a region or an endpoint"))
		}
	case BackendMinio:
		if c.Minio.Endpoint == "" {
			return stasherr.NewConfigError("minio.endpoint", errors.New("required for the minio backend"))
		}
	case BackendAzure:
		if c.Azure.ConnectionString == "" {
			return stasherr.NewConfigError("azure.connection_string", errors.New("required for the azure backend"))
		}
	case "":
		return stasherr.NewConfigError("backend", stasherr.ErrNoBackend)
	default:
		return stasherr.NewConfigError("backend", fmt.Errorf("%w: %q", stasherr.ErrUnsupportedBackend, c.Backend))
	}
	switch storage.ACL(c.ACL) {
	case "", storage.ACLPrivate, storage.ACLPublicRead:
	default:
		return stasherr.NewConfigError("acl", fmt.Errorf("unknown acl %q", c.ACL))
	}
	if c.Compression.Enabled {
		if _, err := compress.ParseAlgorithm(c.Compression.Algorithm); err != nil {
			return stasherr.NewConfigError("compression.algorithm", err)
		}
	}
	if c.Encryption.Enabled {
		switch provider.Cipher(c.Encryption.Cipher) {
		case "", provider.CipherAge, provider.CipherXChaCha:
		default:
			return stasherr.NewConfigError("encryption.cipher", fmt.Errorf("unknown cipher %q", c.Encryption.Cipher))
		}
	}
	return nil
}

// RepositoryConfig builds the immutable repository configuration.
func (c *Config) RepositoryConfig() repository.Config {
	return repository.Config{
		RootContainer: c.RootContainer,
		Account: repository.Account{
			Key:    c.Account.Key,
			Secret: c.Account.Secret,
			Token:  c.Account.Token,
		},
		ConnectionString: c.Azure.ConnectionString,
		ACL:              storage.ParseACL(c.ACL),
	}
}

// Providers builds the provider chain: compression first, then
// encryption. password is required when encryption is enabled.
func (c *Config) Providers(password string) ([]provider.Provider, error) {
	var chain []provider.Provider
	if c.Compression.Enabled {
		alg, err := compress.ParseAlgorithm(c.Compression.Algorithm)
		if err != nil {
			return nil, stasherr.NewConfigError("compression.algorithm", err)
		}
		p, err := provider.NewCompression(provider.CompressionConfig{
			SupportedExtensions: c.Compression.SupportedExtensions,
			Algorithm:           alg,
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}
	if c.Encryption.Enabled {
		p, err := provider.NewEncryption(provider.EncryptionConfig{
			Password: password,
			Suffix:   c.Encryption.Suffix,
			Cipher:   provider.Cipher(c.Encryption.Cipher),
			Armor:    c.Encryption.Armor,
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}
	return chain, nil
}

// RetryConfig overlays configured retry values on the defaults.
func (c *Config) RetryConfig() storage.RetryConfig {
	rc := storage.DefaultRetryConfig()
	if c.Retry.MaxAttempts > 0 {
		rc.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.InitialDelay > 0 {
		rc.InitialDelay = c.Retry.InitialDelay
	}
	if c.Retry.MaxDelay > 0 {
		rc.MaxDelay = c.Retry.MaxDelay
	}
	return rc
}
