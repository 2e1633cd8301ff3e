package gitobj

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk shape of an optional gitobj.toml configuration
// file, read via BurntSushi/toml the way the rest of the retrieved pack's
// config-driven tools do. Every field is optional; a zero value means "use
// the built-in default", applied the same way NewStore's Option defaults
// do.
type fileConfig struct {
	DotGit           string `toml:"dot_git"`
	Level            *int   `toml:"level"`
	ValueCacheSize   int    `toml:"value_cache_size"`
	IndexLRUSize     int    `toml:"index_lru_size"`
	KeysLRUSize      int    `toml:"keys_lru_size"`
	MaxRefChaseDepth int    `toml:"max_ref_chase_depth"`
}

// LoadConfig reads a gitobj.toml file at path and converts it into a slice
// of Options, ready to pass to NewStore/Open alongside any options the
// caller wants to override or add.
func LoadConfig(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrConfigError, path, err)
	}

	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", ErrConfigError, path, err)
	}

	var opts []Option
	if fc.DotGit != "" {
		opts = append(opts, WithDotGit(fc.DotGit))
	}
	if fc.Level != nil {
		opts = append(opts, WithLevel(*fc.Level))
	}
	if fc.ValueCacheSize > 0 {
		opts = append(opts, WithValueCacheSize(fc.ValueCacheSize))
	}
	if fc.IndexLRUSize > 0 {
		opts = append(opts, WithIndexLRUSize(fc.IndexLRUSize))
	}
	if fc.KeysLRUSize > 0 {
		opts = append(opts, WithKeysLRUSize(fc.KeysLRUSize))
	}
	if fc.MaxRefChaseDepth > 0 {
		opts = append(opts, WithMaxRefChaseDepth(fc.MaxRefChaseDepth))
	}
	return opts, nil
}
