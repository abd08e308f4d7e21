package provider

import (
	"strings"

	"github.com/thebluefowl/mediastash/internal/compress"
	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/stasherr"
)

// DefaultExtensions is the compression allowlist used when none is
// configured.
var DefaultExtensions = []string{".png", ".gif", ".bmp", ".jpg", ".avi", ".mp4", ".flv"}

// CompressionConfig configures the compression provider.
type CompressionConfig struct {
	SupportedExtensions []string
	Algorithm           compress.Algorithm
}

// Compression compresses media whose extension is on the allowlist.
type Compression struct {
	alg        compress.Algorithm
	extensions map[string]struct{}
}

var (
	_ Provider = (*Compression)(nil)
	_ Gate     = (*Compression)(nil)
)

// NewCompression builds the provider. A nil extension list falls back
// to DefaultExtensions; an empty non-nil list disables it for every
// entity.
func NewCompression(cfg CompressionConfig) (*Compression, error) {
	alg, err := compress.ParseAlgorithm(string(cfg.Algorithm))
	if err != nil {
		return nil, stasherr.NewConfigError("compression.algorithm", err)
	}
	exts := cfg.SupportedExtensions
	if exts == nil {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return &Compression{alg: alg, extensions: set}, nil
}

func (c *Compression) ID() string { return "compress-" + string(c.alg) }

func (c *Compression) Applies(m *media.Media) bool {
	_, ok := c.extensions[m.Ext()]
	return ok
}

func (c *Compression) Forward(data []byte) ([]byte, error) {
	return compress.Compress(data, c.alg)
}

func (c *Compression) Reverse(data []byte) ([]byte, error) {
	return compress.Decompress(data, c.alg)
}
