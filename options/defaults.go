package options

import (
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/s6ruby/srubyc/platform/contract/loader"
	"github.com/s6ruby/srubyc/targets/types"
)

// DefaultContractName is used when no contract name is configured and
// none can be derived from the source URL.
const DefaultContractName = "Contract"

// DefaultConfig initializes a Config with sensible defaults. The
// contract name stays empty here so WithDefaults can derive it from the
// loader once one is configured.
func DefaultConfig(targetType types.Type) *Config {
	cfg := &Config{}
	cfg.SetTargetType(targetType)
	cfg.SetHandler(DefaultHandler())
	return cfg
}

// DefaultHandler returns the default logging handler
func DefaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stdout, nil)
}

// WithDefaults applies default values to any config properties that are nil
func WithDefaults() Option {
	return func(c *Config) error {
		if c.handler == nil {
			c.handler = DefaultHandler()
		}

		if c.contractName == "" {
			c.contractName = defaultContractName(c.loader)
		}

		return nil
	}
}

// defaultContractName derives the contract name from the file stem of
// the loader's source URL; inline sources fall back to the default.
func defaultContractName(l loader.Loader) string {
	if l == nil {
		return DefaultContractName
	}
	u := l.GetSourceURL()
	if u == nil || u.Scheme != "file" {
		return DefaultContractName
	}
	base := path.Base(u.Path)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return DefaultContractName
	}
	return stem
}
