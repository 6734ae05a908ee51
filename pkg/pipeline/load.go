package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/phylocite/phylocite/pkg/errors"
)

// LoadOptions reads run options from a TOML (.toml) or YAML (.yaml, .yml)
// file. Values absent from the file keep their defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}
	if err := DecodeOptions(data, filepath.Ext(path), &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// DecodeOptions decodes data in the format named by ext onto opts.
func DecodeOptions(data []byte, ext string, opts *Options) error {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		if err := toml.Unmarshal(data, opts); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "parse TOML config")
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, opts); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "parse YAML config")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"unsupported config format %q (must be .toml, .yaml or .yml)", ext)
	}
	return nil
}
