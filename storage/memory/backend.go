package memory

import (
	"flag"

	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
)

func init() {
	backend.MustRegister(backend.Backend{
		Name:          "memory",
		Description:   "In-process map (contents are lost on exit)",
		Usage:         backend.UsageCLI | backend.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open: func() (storage.Store, func() error, error) {
			return New(), nil, nil
		},
		OpenConfig: func(map[string]string) (storage.Store, func() error, error) {
			return New(), nil, nil
		},
	})
}
