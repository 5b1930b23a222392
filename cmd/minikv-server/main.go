// Command minikv-server starts the in-memory key-value server described
// by the dispatcher, store, blocking registry, and reactor packages.
// Wiring follows cachemir-cachemir/cmd/server/main.go: parse config, log
// it, start serving in a goroutine, and wait on SIGINT/SIGTERM to shut
// down cleanly.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/panjf2000/gnet/v2"

	"github.com/qinran6271/minikv/internal/clock"
	"github.com/qinran6271/minikv/internal/dispatch"
	"github.com/qinran6271/minikv/internal/reactor"
	"github.com/qinran6271/minikv/pkg/config"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := log.New(os.Stdout, "minikv-server: ", log.LstdFlags)
	logger.Printf("starting with config: %+v", cfg)

	var opts []dispatch.Option
	if cfg.Verbose {
		opts = append(opts, dispatch.WithVerboseLogging())
	}

	disp := dispatch.New(clock.NewSystem(), logger, opts...)
	r := reactor.New(disp, logger)

	protoAddr := "tcp://" + cfg.Addr()

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Serve(cfg.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("server failed to start: %v", err)
		}
	case <-sigCh:
		logger.Println("shutting down")
		if err := gnet.Stop(context.Background(), protoAddr); err != nil {
			logger.Printf("error stopping server: %v", err)
			os.Exit(1)
		}
		if err := <-errCh; err != nil {
			logger.Printf("server exited with error: %v", err)
			os.Exit(1)
		}
	}

	logger.Println("server stopped")
}
