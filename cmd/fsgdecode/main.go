// Command fsgdecode drives the FSG-constrained beam-search decoder core
// against scripted reference fixtures (spec.md §1 places real acoustic
// scoring and lextree compilation out of scope; this CLI exercises the
// decoder the same way the test suite does, via the hmm/mock,
// acoustic/mock and lextree/mock reference collaborators).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/gofsgdecoder/internal/config"
	"github.com/MrWong99/gofsgdecoder/internal/fsgset"
	"github.com/MrWong99/gofsgdecoder/internal/health"
	"github.com/MrWong99/gofsgdecoder/internal/observe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "decode":
		err = runDecode(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "batch":
		err = runBatch(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("fsgdecode failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: fsgdecode <decode|serve|batch> [flags]`)
}

func setLogLevel(level config.LogLevel) {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// runDecode loads one utterance's fixtures and prints its hypothesis and
// segmentation (spec.md §4.5).
func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to decoder config YAML")
	scoresPath := fs.String("scores", "", "path to the senone score matrix JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath == "" || *scoresPath == "" {
		return errors.New("decode: -config and -scores are required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	setLogLevel(cfg.Server.LogLevel)

	a, fsgSet, err := loadAssets(cfg, *scoresPath)
	if err != nil {
		return err
	}

	dec := newDecoder(cfg, a, fsgSet, slog.Default())
	hyp, ok, err := runUtterance(dec)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("(no hypothesis)")
		return nil
	}
	fmt.Println(hyp)

	if segs, ok := dec.SegIter(); ok {
		for _, s := range segs {
			fmt.Printf("  %-16s [%5d,%5d] ascr=%d\n", s.Word, s.SF, s.EF, s.AScr)
		}
	}
	fmt.Printf("posterior: %.6f\n", dec.Prob())
	return nil
}

// serveState holds the config and decoder assets currently in effect for
// "fsgdecode serve", swapped atomically by the config watcher's reload
// callback (see runServe).
type serveState struct {
	mu     sync.Mutex
	cfg    *config.Config
	assets *assets
	fsgSet *fsgset.Manager
}

func (s *serveState) snapshot() (*config.Config, *assets, *fsgset.Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.assets, s.fsgSet
}

func (s *serveState) set(cfg *config.Config, a *assets, fsgSet *fsgset.Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg, s.assets, s.fsgSet = cfg, a, fsgSet
}

// setConfig swaps in a newly reloaded config without touching the currently
// loaded decoder assets, for changes (e.g. beam widths) that take effect on
// the next decode rather than requiring a grammar/dictionary reload.
func (s *serveState) setConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// runServe starts an HTTP server exposing /healthz, /readyz, /metrics, and
// (when -scores is given) a fixture-driven /decode, instrumented via
// internal/observe.Middleware, per SPEC_FULL.md §5's supplemented
// "fsgdecode serve" feature. The config file is polled by
// [config.Watcher]; each detected change is classified by [config.Diff] to
// decide whether to adjust the log level in place or reload the decoder
// grammar/dictionary assets, without a process restart.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to decoder config YAML")
	addr := fs.String("addr", ":8080", "listen address")
	scoresPath := fs.String("scores", "", "optional path to a senone score matrix JSON, enabling POST /decode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath == "" {
		return errors.New("serve: -config is required")
	}

	st := &serveState{}

	reload := func(cfg *config.Config) error {
		if *scoresPath == "" {
			st.set(cfg, nil, nil)
			return nil
		}
		a, fsgSet, err := loadAssets(cfg, *scoresPath)
		if err != nil {
			return err
		}
		st.set(cfg, a, fsgSet)
		return nil
	}

	watcher, err := config.NewWatcher(*cfgPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			setLogLevel(diff.NewLogLevel)
			slog.Info("config reload: log level changed", "level", diff.NewLogLevel)
		}
		if diff.FSGChanged || diff.DictChanged {
			if err := reload(new); err != nil {
				slog.Error("config reload: failed to reload decoder assets, keeping previous", "err", err)
				return
			}
			slog.Info("config reload: decoder assets reloaded", "fsg_changed", diff.FSGChanged, "dict_changed", diff.DictChanged)
		} else {
			st.setConfig(new)
		}
	}, config.WithInterval(5*time.Second))
	if err != nil {
		return fmt.Errorf("serve: starting config watcher: %w", err)
	}
	defer watcher.Stop()

	cfg := watcher.Current()
	setLogLevel(cfg.Server.LogLevel)
	if err := reload(cfg); err != nil {
		return fmt.Errorf("serve: loading decoder assets: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "gofsgdecoder"})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			slog.Error("telemetry shutdown", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	mux := http.NewServeMux()
	health.New().Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /decode", func(w http.ResponseWriter, r *http.Request) {
		cfg, a, fsgSet := st.snapshot()
		if a == nil {
			http.Error(w, "no -scores fixture loaded; restart with -scores to enable this endpoint", http.StatusNotImplemented)
			return
		}
		dec := newDecoder(cfg, a, fsgSet, slog.Default())
		hyp, ok, err := runUtterance(dec)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"hypothesis": hyp,
			"posterior":  dec.Prob(),
		})
	})

	srv := &http.Server{Addr: *addr, Handler: observe.Middleware(metrics)(mux)}

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			slog.Error("server shutdown", "err", err)
		}
	}()

	slog.Info("serving", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runBatch decodes N independent utterances concurrently, each against its
// own [search.Decoder] instance sharing the same loaded assets, per
// SPEC_FULL.md §5's supplemented "fsgdecode batch" feature.
func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to decoder config YAML")
	n := fs.Int("n", 1, "number of utterances to decode concurrently")
	if err := fs.Parse(args); err != nil {
		return err
	}
	scoresPaths := fs.Args()
	if *cfgPath == "" || len(scoresPaths) == 0 {
		return errors.New("batch: -config is required and at least one score-matrix path must be given")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	setLogLevel(cfg.Server.LogLevel)

	if *n > 0 && *n < len(scoresPaths) {
		scoresPaths = scoresPaths[:*n]
	}

	g, ctx := errgroup.WithContext(context.Background())
	results := make([]string, len(scoresPaths))
	for i, p := range scoresPaths {
		i, p := i, p
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			id := uuid.New().String()
			a, fsgSet, err := loadAssets(cfg, p)
			if err != nil {
				return fmt.Errorf("utterance %s (%s): %w", id, p, err)
			}
			dec := newDecoder(cfg, a, fsgSet, slog.With("utterance", id))
			hyp, ok, err := runUtterance(dec)
			if err != nil {
				return fmt.Errorf("utterance %s (%s): %w", id, p, err)
			}
			if ok {
				results[i] = hyp
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, p := range scoresPaths {
		fmt.Printf("%s: %s\n", p, results[i])
	}
	return nil
}
