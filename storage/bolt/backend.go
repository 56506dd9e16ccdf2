package bolt

import (
	"flag"
	"fmt"

	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
)

var flagBoltPath string

func init() {
	backend.MustRegister(backend.Backend{
		Name:        "bolt",
		Description: "BoltDB file (atomic batches)",
		Usage:       backend.UsageCLI | backend.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBoltPath, "bolt-path", "", "BoltDB file path (for --backend=bolt)")
		},
		Open: func() (storage.Store, func() error, error) {
			return open(flagBoltPath)
		},
		OpenConfig: func(cfg map[string]string) (storage.Store, func() error, error) {
			return open(cfg["bolt-path"])
		},
	})
}

func open(path string) (storage.Store, func() error, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("missing --bolt-path")
	}
	s, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
