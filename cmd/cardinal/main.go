// Command cardinal checks registration manifests and serves the registry
// they describe for inspection.
//
// Usage:
//
//	cardinal [flags] check <manifest.yaml>
//	cardinal [flags] serve <manifest.yaml>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oriumgames/cardinal"
	"github.com/oriumgames/cardinal/inspect"
	"github.com/oriumgames/cardinal/manifest"
)

var (
	configFlag   = flag.String("config", "cardinal.yaml", "Path to the configuration file")
	logLevelFlag = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		slog.Error("cardinal failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: cardinal [flags] <command> <manifest.yaml>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  check   bootstrap the manifest and print the initialization order of every owner type")
	fmt.Fprintln(out, "  serve   bootstrap the manifest and serve the inspection endpoint")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}

func run(args []string) error {
	if len(args) != 2 {
		usage()
		return errors.New("expected a command and a manifest")
	}

	logger := newLogger(*logLevelFlag)
	slog.SetDefault(logger)

	cfg, err := cardinal.LoadConfig(*configFlag)
	if err != nil {
		return err
	}

	cmd, path := args[0], args[1]
	switch cmd {
	case "check":
		r, err := bootstrap(path, cfg, logger, nil)
		if err != nil {
			return err
		}
		return printOrder(os.Stdout, r)
	case "serve":
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := cardinal.NewMetrics()
		if err := m.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		r, err := bootstrap(path, cfg, logger, m)
		if err != nil {
			return err
		}
		return serve(r, reg, cfg.InspectAddr)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func bootstrap(path string, cfg cardinal.Config, logger *slog.Logger, m *cardinal.Metrics) (*cardinal.Registry, error) {
	man, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return cardinal.NewBuilder().
		Config(cfg).
		Logger(logger).
		Metrics(m).
		Plugin(man.Plugin(path)).
		Build()
}

// printOrder writes the initialization order of every owner type.
func printOrder(w io.Writer, r *cardinal.Registry) error {
	for _, t := range r.OwnerTypes() {
		desc, err := r.Specialize(t)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%d components)\n", t.Name(), desc.Len())
		for i := range desc.Len() {
			s := desc.Slot(i)
			fmt.Fprintf(w, "  %d. %s", i+1, s.Key().ID())
			if s.Dynamic() {
				fmt.Fprint(w, " [dynamic]")
			}
			if deps := s.Dependencies(); len(deps) > 0 {
				fmt.Fprint(w, " after")
				for _, d := range deps {
					fmt.Fprintf(w, " %s", d.ID())
				}
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func serve(r *cardinal.Registry, g prometheus.Gatherer, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           inspect.NewHandler(r, g).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("cardinal: serving inspection endpoint", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
