package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Init writes a configuration file at Path, copied from sourcePath when
// given, from the defaults otherwise. An existing file is replaced.
func Init(sourcePath string) error {
	if sourcePath != "" {
		conf, err := readConfigFile(sourcePath)
		if err != nil {
			return err
		}
		if err := conf.Validate(); err != nil {
			return err
		}
		return writeConfigFile(conf)
	}

	return writeConfigFile(defaultConfig())
}

// readConfigFile reads the config from `filename` over the defaults.
func readConfigFile(filename string) (*Config, error) {
	conf := defaultConfig()

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(conf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failure to decode config: %s", err)
	}
	return conf, nil
}

// writeConfigFile writes `cfg` into the configured path.
func writeConfigFile(cfg *Config) error {
	err := os.MkdirAll(filepath.Dir(configPath), 0775)
	if err != nil {
		return err
	}

	if fileExists(configPath) {
		if err := os.Remove(configPath); err != nil {
			return err
		}
	}

	f, err := openFile(configPath, 0660)
	if err != nil {
		return err
	}
	defer f.Close()

	return encode(f, cfg)
}

// encode configuration with YAML
func encode(w io.Writer, value interface{}) error {
	buf, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

type file struct {
	*os.File
	path string
}

// openFile creates path exclusively with the given mode.
func openFile(path string, mode os.FileMode) (*file, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(f.Name(), mode); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return &file{File: f, path: path}, nil
}

// fileExists check if the file with the given path exits.
func fileExists(filename string) bool {
	fi, err := os.Lstat(filename)
	if fi != nil || (err != nil && !os.IsNotExist(err)) {
		return true
	}
	return false
}
