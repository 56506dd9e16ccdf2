package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"xdao.co/idreg/auth"
	"xdao.co/idreg/internal/logx"
	"xdao.co/idreg/registry"
	"xdao.co/idreg/registry/grpcreg"
	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
	"xdao.co/idreg/storage/grpckv"
	"xdao.co/idreg/storage/storeconfig"

	_ "xdao.co/idreg/storage/bolt"
	_ "xdao.co/idreg/storage/localfs"
	_ "xdao.co/idreg/storage/memory"
	_ "xdao.co/idreg/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("xdao-idregd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := registerConfigFlags(fs)
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	backend.RegisterFlags(fs, backend.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		if err := backend.Describe(stdout, backend.UsageDaemon); err != nil {
			return 1
		}
		return 0
	}

	cfg, err := loadConfig(fs, *configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log, err := logx.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	store, closeFn, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Error("open store")
		return 2
	}
	if closeFn != nil {
		defer func() {
			if err := closeFn(); err != nil {
				log.WithError(err).Warn("close store")
			}
		}()
	}

	svc, err := newService(cfg, store, log)
	if err != nil {
		log.WithError(err).Error("init registry")
		return 2
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.WithError(err).Error("listen")
		return 1
	}
	if err := serve(ctx, lis, svc, store, cfg.ServeKV, log); err != nil {
		log.WithError(err).Error("serve")
		return 1
	}
	return 0
}

func openStore(cfg config) (storage.Store, func() error, error) {
	if cfg.StoreConfig != "" {
		sc, err := storeconfig.LoadFile(cfg.StoreConfig)
		if err != nil {
			return nil, nil, err
		}
		return sc.Open(backend.UsageDaemon, "")
	}
	return backend.Open(cfg.Backend, backend.UsageDaemon)
}

func newService(cfg config, store storage.Store, log logrus.FieldLogger) (*registry.Service, error) {
	domain, err := auth.ParseDomain(cfg.Network, cfg.Contract)
	if err != nil {
		return nil, err
	}
	policy, err := registry.ParseOverwritePolicy(cfg.OverwritePolicy)
	if err != nil {
		return nil, err
	}
	return registry.New(store, registry.Options{Domain: domain, Policy: policy, Logger: log})
}

// serve runs the gRPC server on lis until ctx is done, then stops gracefully.
func serve(ctx context.Context, lis net.Listener, svc *registry.Service, store storage.Store, serveKV bool, log logrus.FieldLogger) error {
	s := grpc.NewServer(grpc.UnaryInterceptor(logx.UnaryServerInterceptor(log)))
	grpcreg.RegisterRegistryServer(s, &grpcreg.Server{Service: svc})
	if serveKV {
		grpckv.RegisterKVServer(s, &grpckv.Server{Store: store})
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(lis) }()
	log.WithFields(logrus.Fields{
		"listen":   lis.Addr().String(),
		"policy":   svc.Policy().String(),
		"serve_kv": serveKV,
	}).Info("xdao-idregd listening")

	select {
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		s.GracefulStop()
		return nil
	}
}
