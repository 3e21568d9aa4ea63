package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Initialize writes the default configuration into dir, creating it if needed,
// and loads it back.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absDir, 0700); err != nil {
		return nil, err
	}

	if err := InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), absDir), logger); err != nil {
		return nil, err
	}
	return Load(absDir)
}

// InitializeFs writes the default configuration to the root of fs. Existing
// files are left alone.
func InitializeFs(fs afero.Fs, logger *log.Logger) error {
	exists, err := afero.Exists(fs, ConfigurationName)
	if err != nil {
		return err
	}
	if exists {
		logger.Printf("%s already exists, skipping", ConfigurationName)
		return nil
	}

	logger.Printf("Writing %s", ConfigurationName)
	if err := afero.WriteFile(fs, ConfigurationName, defaultConfigData, 0600); err != nil {
		return errors.Wrapf(err, "write %s", ConfigurationName)
	}
	return nil
}
