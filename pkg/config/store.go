package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store loads and persists a Configuration. hostpilot keeps no encrypted
// local state, so unlike some host-alias tools there is no passphrase here:
// the YAML file on disk is the whole story.
type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path string
}

// NewDefaultStore builds a Store backed by a plain YAML file at path.
func NewDefaultStore(path string) Store {
	return &defaultStore{Path: path}
}

func (s *defaultStore) Load() (*Configuration, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return NewConfiguration(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg := NewConfiguration()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *defaultStore) Save(cfg *Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}
