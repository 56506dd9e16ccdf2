package localfs

import (
	"flag"
	"fmt"

	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
)

var (
	flagLocalDir string
)

func init() {
	backend.MustRegister(backend.Backend{
		Name:        "localfs",
		Description: "Local filesystem store (directory)",
		Usage:       backend.UsageCLI | backend.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "LocalFS store directory (for --backend=localfs)")
		},
		Open: func() (storage.Store, func() error, error) {
			return open(flagLocalDir)
		},
		OpenConfig: func(cfg map[string]string) (storage.Store, func() error, error) {
			return open(cfg["localfs-dir"])
		},
	})
}

func open(dir string) (storage.Store, func() error, error) {
	if dir == "" {
		return nil, nil, fmt.Errorf("missing --localfs-dir")
	}
	s, err := New(dir)
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}
