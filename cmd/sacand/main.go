package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("sacand v%s\n", version)
	fmt.Println("Mirrors an ALSA mixer control into desktop notifications")
}

func printUsage(fs *flag.FlagSet) {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  sacand [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Listens on a Unix socket in the user runtime directory. Each connection")
	fmt.Println("  carries one message: \"+N\" raises and \"-N\" lowers the perceived volume")
	fmt.Println("  by N percent; anything else re-shows the current level. The result is")
	fmt.Println("  shown as a desktop notification that is updated in place.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  sacand")
	fmt.Println("  sacand --device hw:1 --control PCM")
	fmt.Println("  printf +5 | socat - UNIX-CONNECT:$XDG_RUNTIME_DIR/sacand")
	fmt.Println("  sacanctl up 5")
	fmt.Println()
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("sacand", flag.ContinueOnError)
	var (
		configPath = fs.StringP("config", "c", "", "Path to YAML config file")

		mixerDevice  = fs.String("device", defaultMixerDevice, "ALSA device (\"default\" or \"hw:N\")")
		mixerControl = fs.String("control", defaultMixerControl, "Mixer control name")
		mixerIndex   = fs.Int("index", defaultMixerIndex, "Mixer control index")

		socketPath    = fs.String("socket", "", "Control socket path (default <runtime-dir>/sacand)")
		readTimeoutMS = fs.Int("read-timeout-ms", defaultReadTimeoutMS, "Per-connection read deadline in ms (0 disables)")

		notifyTimeoutMS = fs.Int("notify-timeout-ms", defaultNotifyTimeoutMS, "Notification expiry in ms (-1 lets the server decide)")

		statusListen = fs.String("status-listen", "", "Serve the WebSocket status feed on this address (e.g. 127.0.0.1:7070)")

		logLevel  = fs.String("log-level", "info", "Log level: error, warn, info, debug")
		logFormat = fs.String("log-format", "auto", "Log format: auto, text, json")

		showVersion = fs.BoolP("version", "v", false, "Print version and exit")
		showHelp    = fs.BoolP("help", "h", false, "Print help message")
	)
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	if *showHelp {
		printUsage(fs)
		return 0
	}
	if *showVersion {
		printVersion()
		return 0
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var o FlagOverrides
	if fs.Changed("device") {
		o.MixerDevice = mixerDevice
	}
	if fs.Changed("control") {
		o.MixerControl = mixerControl
	}
	if fs.Changed("index") {
		o.MixerIndex = mixerIndex
	}
	if fs.Changed("socket") {
		o.SocketPath = socketPath
	}
	if fs.Changed("read-timeout-ms") {
		o.ReadTimeoutMS = readTimeoutMS
	}
	if fs.Changed("notify-timeout-ms") {
		o.NotifyTimeoutMS = notifyTimeoutMS
	}
	if fs.Changed("status-listen") {
		o.StatusListen = statusListen
	}
	if fs.Changed("log-level") {
		o.LogLevel = logLevel
	}
	if fs.Changed("log-format") {
		o.LogFormat = logFormat
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	level, _ := parseLogLevel(cfg.Logging.Level)
	format, _ := parseLogFormat(cfg.Logging.Format)
	logger := setupLogger(level, format)

	logger.Debug("starting sacand", "version", version)
	logger.Debug("configuration",
		"config", *configPath,
		"mixer_device", cfg.Mixer.Device,
		"mixer_control", cfg.Mixer.Control,
		"mixer_index", cfg.Mixer.Index,
		"socket", cfg.Socket.Path,
		"read_timeout_ms", cfg.Socket.ReadTimeoutMS,
		"max_payload_bytes", cfg.Socket.MaxPayloadBytes,
		"notify_timeout_ms", cfg.Notify.TimeoutMS,
		"status_listen", cfg.Status.Listen)

	spec := MixerSpec{Device: cfg.Mixer.Device, Control: cfg.Mixer.Control, Index: cfg.Mixer.Index}
	mixer, err := OpenMixer(spec)
	if err != nil {
		logger.Error("failed to open mixer", "mixer", spec.String(), "error", err, "tip", "add user to the 'audio' group")
		return 1
	}
	defer mixer.Close()

	var notifier Notifier
	if dn, err := NewDBusNotifier(cfg.Notify); err != nil {
		logger.Warn("notification service unavailable; logging levels instead", "error", err)
		notifier = &logNotifier{logger: logger}
	} else {
		defer dn.Close()
		notifier = dn
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	var status StatusPublisher
	if cfg.Status.Listen != "" {
		srv := NewStatusServer(logger, HubConfig{})
		status = srv
		g.Go(func() error {
			srv.Hub().Run(ctx)
			return nil
		})
		g.Go(func() error {
			return serveStatus(ctx, cfg.Status.Listen, cfg.Status.Path, srv, logger)
		})
	}

	session := NewSession(SessionConfig{
		SocketPath:  cfg.Socket.Path,
		ReadTimeout: cfg.ReadTimeout(),
		MaxPayload:  int64(cfg.Socket.MaxPayloadBytes),
		Summary:     cfg.Notify.Summary,
	}, mixer, notifier, status, logger)

	g.Go(func() error {
		err := session.Run(ctx)
		// The control channel is the daemon: stop everything else with it.
		stop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("sacand stopped", "error", err, "state", session.State())
		return 1
	}
	logger.Info("shutting down")
	return 0
}

// serveStatus runs the status feed HTTP server until ctx is canceled.
func serveStatus(ctx context.Context, addr, path string, srv *StatusServer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	srv.Register(mux, path)

	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("status feed listening", "addr", addr, "path", path)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status feed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
		<-errc
		return nil
	}
}
