// Package storeconfig opens one or more storage backends from a config file.
package storeconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"xdao.co/idreg/model"
	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
)

// Config describes how to open one or more backends via the backend registry.
//
// Callers still need to link desired backend plugins via blank imports.
//
// WritePolicy values:
// - "first" (default): write only to the first backend; reads fall back in order
// - "all": write to all backends (see storage.ReplicatingStore)
//
// Example (YAML; the same shape is accepted as JSON):
//
//	write_policy: all
//	backends:
//	  - name: sqlite
//	    config: {sqlite-path: /var/lib/idreg/idreg.db}
//	  - name: localfs
//	    id: mirror
//	    config: {localfs-dir: /srv/idreg-mirror}
//
// Config values are backend-specific and mirror the backend's flag names.
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty" yaml:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends" yaml:"backends"`
}

type BackendConfig struct {
	// Name is the registered backend name to open (e.g. "sqlite", "localfs", "grpc").
	Name string `json:"name" yaml:"name"`
	// ID is an optional stable alias used in errors and replication reports.
	// If empty, Name is used.
	ID     string            `json:"id,omitempty" yaml:"id,omitempty"`
	Config map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

// LoadFile reads a config file. Files ending in .json are parsed as JSON,
// everything else as YAML.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, confError("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(b, &cfg)
	} else {
		err = yaml.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("storeconfig: parse %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// Validate checks names, id uniqueness and the write policy.
func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return confError("at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return confError("backend name is required")
		}
		id := b.id()
		if _, ok := seen[id]; ok {
			return confError(fmt.Sprintf("duplicate backend id %q", id))
		}
		seen[id] = struct{}{}
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return confError(fmt.Sprintf("invalid write_policy %q", c.WritePolicy))
	}
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Open opens every configured backend and composes them per WritePolicy.
// A single backend is returned as is.
//
// preferred, when set, names a backend (by name or id) to move to the front,
// making it the write target under the "first" policy.
func (c Config) Open(usage backend.Usage, preferred string) (storage.Store, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	ordered := slices.Clone(c.Backends)
	if preferred != "" {
		i := slices.IndexFunc(ordered, func(b BackendConfig) bool { return b.Name == preferred || b.ID == preferred })
		if i < 0 {
			return nil, nil, confError(fmt.Sprintf("preferred backend %q not found in config", preferred))
		}
		first := ordered[i]
		ordered = append([]BackendConfig{first}, slices.Delete(ordered, i, i+1)...)
	}

	var (
		named   []storage.NamedStore
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	for _, b := range ordered {
		s, closeFn, err := backend.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("storeconfig: open %q: %w", b.id(), err)
		}
		named = append(named, storage.NamedStore{Name: b.id(), Store: s})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}
	if c.WritePolicy == "all" {
		return storage.ReplicatingStore{Backends: named}, closeAll, nil
	}
	multi := storage.MultiStore{Stores: make([]storage.Store, len(named))}
	for i, n := range named {
		multi.Stores[i] = n.Store
	}
	return multi, closeAll, nil
}

func confError(msg string) error {
	return model.NewError(model.KindInvalid, "IDREG-CONF-006", "storeconfig: "+msg)
}
