package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"skald.games/internal/config"
	persistlog "skald.games/internal/persistence/log"
	"skald.games/internal/persistence/transcript"
	"skald.games/internal/protocol"
	"skald.games/internal/transport/ws"
	"skald.games/internal/uistack"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		configPath = flag.String("config", "./configs/server.yaml", "server config path")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", *configPath)
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.Addr = *addr
	}
	if strings.TrimSpace(*dataDir) != "" {
		cfg.DataDir = *dataDir
	}

	stack := uistack.NewStack()
	stack.Push(uistack.NewGameplay())
	services := uistack.NewServiceQueue()

	interval := time.Second / time.Duration(cfg.TickRateHz)
	runner := uistack.NewRunner(logger, stack, services, interval)

	game := newArenaGame(stack, services)
	runner.SetOnTick(game.tick)

	sessionDir := filepath.Join(cfg.DataDir, "sessions", runner.SessionID())
	_ = os.MkdirAll(sessionDir, 0o755)

	var recorders []uistack.Recorder
	if cfg.Transcript.Enabled {
		store, err := transcript.Open(filepath.Join(cfg.DataDir, "transcript.db"), runner.SessionID())
		if err != nil {
			logger.Fatalf("open transcript: %v", err)
		}
		defer store.Close()
		recorders = append(recorders, store)
	}
	if cfg.Transcript.UpdateLog {
		ul := persistlog.NewUpdateLogger(sessionDir)
		defer ul.Close()
		recorders = append(recorders, ul)
	}
	if len(recorders) > 0 {
		runner.SetRecorder(multiRecorder(recorders))
	}

	ctx, cancel := signalContext()
	defer cancel()

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if err := runner.Run(ctx); err != nil {
			logger.Printf("session stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(runner, cfg.MaxClientQueue, logger).Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-runnerDone:
			// The session delivered its Shutdown; nothing left to serve.
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("session %s listening on %s", runner.SessionID(), cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-runnerDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// multiRecorder fans one session out to several sinks.
type multiRecorder []uistack.Recorder

func (m multiRecorder) RecordStack(revision uint64, stack protocol.UiStack) {
	for _, r := range m {
		r.RecordStack(revision, stack)
	}
}

func (m multiRecorder) RecordService(req protocol.ServiceRequest) {
	for _, r := range m {
		r.RecordService(req)
	}
}
