package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return LoadFs(afero.NewBasePathFs(afero.NewOsFs(), absPath), absPath)
}

// LoadFs loads the configuration from the root of fs. dir is the real path
// of that root, used for files that have to be opened by path.
func LoadFs(fs afero.Fs, dir string) (*Configuration, error) {
	configContents, err := afero.ReadFile(fs, ConfigurationName)
	if err != nil {
		return nil, err
	}

	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, errors.Wrap(err, ConfigurationName)
	}
	if err := out.Validate(); err != nil {
		return nil, errors.Wrap(err, ConfigurationName)
	}

	out.configFs = fs
	out.configurationDir = dir
	return &out, nil
}

// Exists reports whether a configuration has been initialized in path.
func Exists(path string) bool {
	_, err := os.Stat(filepath.Join(path, ConfigurationName))
	return err == nil
}
