package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultServer = "http://localhost:5000"

// fileConfig is the optional YAML config file.
type fileConfig struct {
	Server    string        `yaml:"server"`
	Timeout   time.Duration `yaml:"timeout"`
	TokenFile string        `yaml:"token_file"`
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskctl"
	}
	return filepath.Join(home, ".taskctl")
}

func defaultTokenFile() string {
	return filepath.Join(configDir(), "token")
}

// loadConfig reads path, or the default location when path is empty. A
// missing default file is not an error.
func loadConfig(path string) (fileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(configDir(), "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// errNotLoggedIn is returned when no token is stored.
var errNotLoggedIn = errors.New("not logged in; run taskctl login")

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errNotLoggedIn
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errNotLoggedIn
	}
	return token, nil
}

// writeToken stores the token readable by the owner only.
func writeToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

func removeToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}
