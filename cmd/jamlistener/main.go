// Command jamlistener runs a headless, listen-only client against a
// low-latency music streaming server: it negotiates the session, receives
// and decodes audio to raw PCM on stdout, and keeps the upstream alive
// with silence. Everything in this file is external-collaborator wiring
// (spec.md §1 "Out of scope"); the protocol and audio logic live in the
// protocol and audio packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jamulus-go/client/audio"
	"github.com/jamulus-go/client/config"
	"github.com/jamulus-go/client/controlsocket"
	"github.com/jamulus-go/client/logging"
	"github.com/jamulus-go/client/protocol"
	"github.com/jamulus-go/client/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "jamlistener:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath     = flag.String("config", "", "path to a YAML config file")
		serverAddr     = flag.String("server", "", "server address, e.g. 127.0.0.1:22124")
		bindAddr       = flag.String("bind", "", "local UDP bind address")
		displayName    = flag.String("name", "", "display name sent to the server")
		jitterCapacity = flag.Int("jitter-capacity", 0, "jitter buffer capacity (0 keeps the config/default value)")
		controlAddr    = flag.String("control-socket", "", "optional websocket URL to publish status events to")
		debugDump      = flag.Bool("debug-dump", false, "dump the resolved configuration to stderr before connecting")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if *serverAddr != "" {
		cfg.ServerAddress = *serverAddr
	}
	if *bindAddr != "" {
		cfg.BindAddress = *bindAddr
	}
	if *displayName != "" {
		cfg.DisplayName = *displayName
	}
	if *jitterCapacity > 0 {
		cfg.JitterCapacity = *jitterCapacity
	}
	if *controlAddr != "" {
		cfg.ControlSocketAddress = *controlAddr
	}

	if *debugDump {
		spew.Fdump(os.Stderr, cfg)
	}

	logger, err := logging.NewStderr()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	if cfg.Logging.File != "" {
		logger = logging.NewFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
	}

	decoder, err := audio.NewDecoder()
	if err != nil {
		// Codec construction failure is fatal at startup (spec.md §7).
		return fmt.Errorf("initializing opus decoder: %w", err)
	}
	defer decoder.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	udpConn, err := dialUDPWithBackoff(ctx, cfg.BindAddress, cfg.ServerAddress, logger)
	if err != nil {
		return fmt.Errorf("dialing server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	onSinkError := func(err error) {
		logger.Error("pcm sink write failed, shutting down", err)
		cancel()
	}

	out := sink.New(os.Stdout)
	adapter := audio.NewAdapter(decoder, cfg.JitterCapacity, out, onSinkError)

	session := protocol.NewSession(cfg.DisplayName)
	engine := protocol.NewEngine(udpConn, session, adapter)
	engine.ErrorLog = func(err error) { logger.Debug(err.Error()) }

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(gctx)
	})

	if cfg.ControlSocketAddress != "" {
		g.Go(func() error {
			return runControlSocket(gctx, cfg.ControlSocketAddress, cfg.DisplayName, logger)
		})
	}

	logger.Info("jamlistener connected", zap.String("server", cfg.ServerAddress))

	return g.Wait()
}

// retryMinDelay and retryMaxDelay bound the jittered backoff between
// dial attempts in dialUDPWithBackoff.
const (
	retryMinDelay = 250 * time.Millisecond
	retryMaxDelay = 10 * time.Second
)

// dialUDPWithBackoff retries a transient dial failure (a server that hasn't
// come up yet, a flaky local network) with jittered exponential backoff
// instead of failing the whole process on the first attempt. It gives up
// only when ctx is canceled.
func dialUDPWithBackoff(ctx context.Context, bind, server string, logger logging.Logger) (*net.UDPConn, error) {
	for attempt := 0; ; attempt++ {
		conn, err := dialUDP(bind, server)
		if err == nil {
			return conn, nil
		}

		logger.Error("dialing server failed, retrying", err)

		timer := time.NewTimer(retryDelay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// retryDelay returns a jittered exponential backoff for the given
// zero-based attempt number, growing from retryMinDelay toward
// retryMaxDelay and never exceeding it.
func retryDelay(attempt int) time.Duration {
	d := float64(retryMinDelay) * math.Pow(2, float64(attempt))
	d = rand.Float64()*(d-float64(retryMinDelay)) + float64(retryMinDelay)
	if d > float64(retryMaxDelay) {
		return retryMaxDelay
	}
	return time.Duration(d)
}

func dialUDP(bind, server string) (*net.UDPConn, error) {
	localAddr, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return nil, fmt.Errorf("resolving bind address: %w", err)
	}
	remoteAddr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, fmt.Errorf("resolving server address: %w", err)
	}

	conn, err := net.DialUDP("udp", localAddr, remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing udp: %w", err)
	}
	return conn, nil
}

func runControlSocket(ctx context.Context, addr, displayName string, logger logging.Logger) error {
	client, err := controlsocket.Dial(ctx, addr)
	if err != nil {
		logger.Error("control socket dial failed, continuing without it", err)
		return nil
	}
	defer client.Close()

	if err := client.Notify(ctx, "session.started", map[string]string{"display_name": displayName}); err != nil {
		logger.Error("publishing session.started", err)
	}

	<-ctx.Done()

	_ = client.Notify(context.Background(), "session.stopped", nil)
	return nil
}
