// kbmd - remote keyboard and mouse daemon
// Accepts one authenticated controller at a time and replays its keyboard and
// pointer commands on the local X display.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"kbmd/internal/auth"
	"kbmd/internal/autostart"
	"kbmd/internal/config"
	"kbmd/internal/dispatch"
	"kbmd/internal/input"
	"kbmd/internal/logging"
	"kbmd/internal/network"
	"kbmd/internal/tray"
)

var (
	version      = "0.1.0"
	configPath   = flag.String("config", "", "Path to the configuration file")
	writeConfig  = flag.Bool("write-config", false, "Write the effective configuration to the config file and exit")
	listenAddr   = flag.String("listen", "", "TCP address to accept controllers on")
	wsAddr       = flag.String("ws-addr", "", "Address for the websocket listener (disabled when empty)")
	secretFile   = flag.String("secret", "", "File holding the shared secret")
	display      = flag.String("display", "", "X display to inject into (default $DISPLAY)")
	dryRun       = flag.Bool("dry-run", false, "Log events instead of injecting them")
	withTray     = flag.Bool("tray", false, "Show a status icon in the system tray")
	connectTo    = flag.String("connect", "", "Run as a controller: send commands read from stdin to this daemon (host:port or ws:// URL)")
	autostartCmd = flag.String("autostart", "", "Start on login: enable or disable")
	logLevel     = flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	logJSON      = flag.Bool("log-json", false, "Log as JSON")
	showVer      = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("kbmd version %s\n", version)
		return
	}

	if err := run(); err != nil {
		log.WithError(err).Error("kbmd stopped")
		os.Exit(1)
	}
}

func run() error {
	cfgMgr, err := config.NewManager(*configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	if err := cfgMgr.Load(); err != nil {
		return err
	}
	cfg := cfgMgr.Get()
	applyFlags(&cfg)
	cfgMgr.Set(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.JSON); err != nil {
		return err
	}

	if *writeConfig {
		if err := cfgMgr.Save(); err != nil {
			return err
		}
		fmt.Println(cfgMgr.Path())
		return nil
	}

	if *autostartCmd != "" {
		return handleAutostart(*autostartCmd, cfgMgr.Path())
	}

	cred, err := auth.LoadCredential(cfg.Server.SecretFile)
	if err != nil {
		return fmt.Errorf("%w (create one with: head -c 32 /dev/urandom | base64 > %s)", err, cfg.Server.SecretFile)
	}
	defer cred.Destroy()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *connectTo != "" {
		return runClient(ctx, cred, *connectTo)
	}
	if cfg.Tray.Enabled {
		return runWithTray(ctx, cfg, cred)
	}
	return runDaemon(ctx, cfg, cred, nil)
}

// applyFlags copies explicitly set command-line flags over cfg.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Server.ListenAddr = *listenAddr
		case "ws-addr":
			cfg.Server.WSAddr = *wsAddr
		case "secret":
			cfg.Server.SecretFile = *secretFile
		case "display":
			cfg.Input.Display = *display
		case "dry-run":
			cfg.Input.DryRun = *dryRun
		case "tray":
			cfg.Tray.Enabled = *withTray
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-json":
			cfg.Log.JSON = *logJSON
		}
	})
}

func handleAutostart(cmd, cfgPath string) error {
	switch cmd {
	case "enable":
		var args []string
		if *configPath != "" {
			abs, err := filepath.Abs(cfgPath)
			if err != nil {
				return err
			}
			args = append(args, "-config", abs)
		}
		path, err := autostart.Enable(args...)
		if err != nil {
			return fmt.Errorf("failed to enable autostart: %w", err)
		}
		fmt.Printf("Autostart entry written to %s\n", path)
		return nil
	case "disable":
		if err := autostart.Disable(); err != nil {
			return fmt.Errorf("failed to disable autostart: %w", err)
		}
		fmt.Println("Autostart disabled")
		return nil
	default:
		return fmt.Errorf("unknown -autostart value %q (want enable or disable)", cmd)
	}
}

func newInjector(cfg config.InputConfig) (input.InputInjector, error) {
	if cfg.DryRun {
		w, h := cfg.ScreenWidth, cfg.ScreenHeight
		if w == 0 {
			w = input.DefaultScreenWidth
		}
		if h == 0 {
			h = input.DefaultScreenHeight
		}
		return input.NewLogInjector(w, h, logging.For("dry-run")), nil
	}
	inj, err := input.NewInjector(cfg.Display)
	if err != nil {
		return nil, err
	}
	return inj, nil
}

// runDaemon serves controllers until ctx is done or a loop fails. status, when
// set, is told about listener and session changes.
func runDaemon(ctx context.Context, cfg config.Config, cred *auth.Credential, status *tray.Tray) error {
	logger := logging.For("main")

	inj, err := newInjector(cfg.Input)
	if err != nil {
		return err
	}
	defer inj.Close()

	d := dispatch.New()
	pointer := input.NewInterpolator(inj, d.Pointer, input.PointerOptions{
		Step:         int16(cfg.Input.PointerStep),
		Interval:     cfg.Input.PointerInterval.D(),
		ScreenWidth:  cfg.Input.ScreenWidth,
		ScreenHeight: cfg.Input.ScreenHeight,
	}, logging.For("pointer"))
	keys := input.NewActuator(inj, d, cfg.Input.KeySettle.D(), logging.For("keys"))

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return err
	}
	for _, addr := range network.ReachableAddrs(ln.Addr()) {
		logger.WithField("addr", addr).Info("controllers can connect")
	}

	listening := ln.Addr().String()
	opts := network.Options{
		AuthTimeout: cfg.Server.AuthTimeout.D(),
		FrameSize:   cfg.Server.FrameSize,
		AuthRate:    rate.Limit(cfg.Server.AuthRate),
		AuthBurst:   cfg.Server.AuthBurst,
		KeepAlive:   cfg.Server.KeepAlive.D(),
	}
	if status != nil {
		status.SetStatus("listening on " + listening)
		opts.OnSession = func(active bool, remote string) {
			if active {
				status.SetStatus("controlled by " + remote)
			} else {
				status.SetStatus("listening on " + listening)
			}
		}
	}
	srv := network.NewServer(cred, d, opts, logging.For("server"))

	listeners := []net.Listener{ln}
	if cfg.Server.WSAddr != "" {
		wsl, err := network.ListenWS(cfg.Server.WSAddr, cfg.Server.WSPath, logging.For("websocket"))
		if err != nil {
			ln.Close()
			return err
		}
		listeners = append(listeners, wsl)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCancel(pointer.Run(gctx)) })
	g.Go(func() error { return ignoreCancel(keys.Run(gctx)) })
	for _, l := range listeners {
		g.Go(func() error { return srv.Serve(gctx, l) })
	}

	logger.WithFields(log.Fields{"version": version, "dry_run": cfg.Input.DryRun}).Info("kbmd running")
	err = g.Wait()
	logger.Info("kbmd shutting down")
	return err
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWithTray keeps the tray loop on the main goroutine and the daemon beside it.
func runWithTray(ctx context.Context, cfg config.Config, cred *auth.Credential) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New("kbmd")
	t.AddSeparator()
	t.AddMenuItem("Quit", cancel)

	errCh := make(chan error, 1)
	go func() {
		err := runDaemon(ctx, cfg, cred, t)
		t.Stop()
		errCh <- err
	}()
	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	t.Run()
	cancel()
	return <-errCh
}

func runClient(ctx context.Context, cred *auth.Credential, addr string) error {
	logger := logging.For("client")
	c, err := network.Dial(ctx, addr, cred, 0, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Connected. One command per line: t <char>, c <button>, m <x> <y>, s <key>. Ctrl-D to quit.")
	}

	done := make(chan error, 1)
	go func() { done <- c.Forward(ctx, os.Stdin) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}
