package sqlite

import (
	"flag"
	"fmt"

	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
)

var flagSQLitePath string

func init() {
	backend.MustRegister(backend.Backend{
		Name:        "sqlite",
		Description: "SQLite database file (atomic batches)",
		Usage:       backend.UsageCLI | backend.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagSQLitePath, "sqlite-path", "", "SQLite database path (for --backend=sqlite)")
		},
		Open: func() (storage.Store, func() error, error) {
			return open(flagSQLitePath)
		},
		OpenConfig: func(cfg map[string]string) (storage.Store, func() error, error) {
			return open(cfg["sqlite-path"])
		},
	})
}

func open(path string) (storage.Store, func() error, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("missing --sqlite-path")
	}
	s, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
