// Package backend keeps the set of storage.Store implementations linked into
// a binary. Each implementation package adds itself from init:
//
//	func init() {
//		backend.MustRegister(backend.Backend{Name: "bolt", ...})
//	}
//
// and a program enables it with a blank import.
package backend

import (
	"cmp"
	"flag"
	"fmt"
	"io"
	"slices"
	"sync"

	"xdao.co/idreg/model"
	"xdao.co/idreg/storage"
)

// Opener returns a store and an optional close func.
type Opener func() (storage.Store, func() error, error)

// Backend describes one store implementation.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags adds the backend's own flags (conventionally prefixed with
	// its name, e.g. -bolt-path). Called at most once per FlagSet.
	RegisterFlags func(fs *flag.FlagSet)

	// Open builds the store from the values parsed into those flags.
	Open Opener

	// OpenConfig builds the store from a map keyed by the same names as the
	// flags. storeconfig uses it to open several instances of one backend.
	OpenConfig func(cfg map[string]string) (storage.Store, func() error, error)
}

func (b Backend) validate() error {
	switch {
	case b.Name == "":
		return fmt.Errorf("backend: name is required")
	case b.Usage == 0:
		return fmt.Errorf("backend %q: no usage bits", b.Name)
	case b.RegisterFlags == nil, b.Open == nil, b.OpenConfig == nil:
		return fmt.Errorf("backend %q: RegisterFlags, Open and OpenConfig are all required", b.Name)
	}
	return nil
}

var (
	mu       sync.RWMutex
	backends = make(map[string]Backend)
)

// Register adds b. Names are unique per process.
func Register(b Backend) error {
	if err := b.validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := backends[b.Name]; dup {
		return fmt.Errorf("backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is Register for init funcs.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends usable by a program of the given usage, by name.
func List(usage Usage) []Backend {
	mu.RLock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	mu.RUnlock()
	slices.SortFunc(out, func(a, b Backend) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Names is List reduced to names.
func Names(usage Usage) []string {
	var names []string
	for _, b := range List(usage) {
		names = append(names, b.Name)
	}
	return names
}

// Describe writes one "name<TAB>description" line per backend, for -list-backends.
func Describe(w io.Writer, usage Usage) error {
	for _, b := range List(usage) {
		line := b.Name
		if b.Description != "" {
			line += "\t" + b.Description
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFlags adds every matching backend's flags to fs so that a single
// Parse accepts all of them; the std flag package rejects unknown flags.
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		b.RegisterFlags(fs)
	}
}

func lookup(name string, usage Usage) (Backend, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return Backend{}, model.NewError(model.KindInvalid, "IDREG-CONF-004",
			fmt.Sprintf("unknown backend %q (have %v)", name, Names(usage)))
	}
	if !b.Usage.allows(usage) {
		return Backend{}, model.NewError(model.KindInvalid, "IDREG-CONF-005",
			fmt.Sprintf("backend %q is not available to %s programs", name, usage))
	}
	return b, nil
}

// Open opens the named backend from its parsed flags.
func Open(name string, usage Usage) (storage.Store, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	return b.Open()
}

// OpenWithConfig opens the named backend from a config map. A nil map is
// treated as empty.
func OpenWithConfig(name string, usage Usage, cfg map[string]string) (storage.Store, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		cfg = map[string]string{}
	}
	return b.OpenConfig(cfg)
}
