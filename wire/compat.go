package wire

import (
	"os"
	"strconv"
	"sync/atomic"
)

// Config controls optional decoder limits. The zero value imposes no limits
// and matches the plain format semantics.
type Config struct {
	// MaxDepth bounds array/struct nesting on decode. Zero means unlimited.
	MaxDepth int `toml:"maxDepth" yaml:"maxDepth"`

	// MaxLength bounds every decoded string/binary length and array/struct
	// element count. Zero means unlimited; lengths are still only allocated
	// as bytes actually arrive.
	MaxLength uint64 `toml:"maxLength" yaml:"maxLength"`

	// ValidateStrings rejects string values that are not valid UTF-8. Member
	// and method names are always validated.
	ValidateStrings bool `toml:"validateStrings" yaml:"validateStrings"`
}

var config atomic.Value // Config

// SetConfig sets the package default configuration used by decoders that
// were not given one explicitly.
func SetConfig(c Config) { config.Store(c) }

// DefaultConfig returns the package default configuration.
func DefaultConfig() Config { return config.Load().(Config) }

func init() {
	c := Config{}
	// Optional env toggles for test harnesses; unset variables keep the zero value.
	if v, err := strconv.Atoi(os.Getenv("FRPC_MAX_DEPTH")); err == nil && v > 0 {
		c.MaxDepth = v
	}
	if v, err := strconv.ParseUint(os.Getenv("FRPC_MAX_LENGTH"), 10, 64); err == nil {
		c.MaxLength = v
	}
	if v := os.Getenv("FRPC_VALIDATE_STRINGS"); v == "1" || v == "true" {
		c.ValidateStrings = true
	}
	config.Store(c)
}
