// justcalld - background daemon for one-keystroke video calls
//
// The daemon owns the settings document, registers global shortcuts,
// drives the call state machine and serves the control socket that
// justcallctl and the desktop front end talk to.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"justcall/internal/call"
	"justcall/internal/config"
	"justcall/internal/history"
	"justcall/internal/hotkey"
	"justcall/internal/ipc"
	"justcall/internal/launcher"
	"justcall/internal/logging"
	"justcall/internal/notify"
	"justcall/internal/settings"
)

var version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to config file (default: platform config dir)")
	settingsPath := flag.String("settings", "", "override the settings document path")
	logLevel := flag.String("log-level", "", "override the log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("justcalld " + version)
		return
	}

	cfg, created, err := config.LoadOrCreate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "justcalld: load config: %v (continuing with defaults)\n", err)
		cfg = config.DefaultConfig()
		cfg.ApplyEnvOverrides()
	}
	if *settingsPath != "" {
		cfg.Settings.Path = *settingsPath
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "justcalld: invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "justcalld: setup logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	defer log.Close()

	if created {
		path := *configPath
		if path == "" {
			path = config.ConfigPath()
		}
		log.Info("wrote default config", "path", path)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Error("create daemon directories", "error", err)
		os.Exit(1)
	}

	// A settings document that no longer parses must not stop the daemon;
	// it keeps running on defaults and never overwrites the broken file
	// until the user changes something.
	store, err := settings.LoadFromPath(cfg.Settings.Path)
	if err != nil {
		log.Error("settings document unreadable, starting with defaults", "error", err)
		store = settings.NewWithPath(cfg.Settings.Path)
	}

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			log.Error("open call history, continuing without it", "error", err)
			hist = nil
		} else {
			defer hist.Close()
			if cfg.History.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -cfg.History.RetentionDays)
				if n, err := hist.Prune(cutoff); err != nil {
					log.Warn("prune call history", "error", err)
				} else if n > 0 {
					log.Info("pruned call history", "removed", n)
				}
			}
		}
	}

	machine := call.NewMachine()

	if cfg.Notifications.Enabled {
		notifier := notify.New()
		defer notifier.Close()
		machine.Subscribe(func(st call.State) {
			if store.Settings().AppSettings.ShowNotifications {
				notifier.StateChanged(st)
			}
		})
	}

	browser := launcher.NewBrowser(cfg.Conference.Host)

	var opts []call.Option
	if hist != nil {
		opts = append(opts, call.WithHistory(hist))
	}
	orch := call.NewOrchestrator(machine, store, browser, opts...)

	var registry *hotkey.Registry
	if cfg.Hotkeys.Enabled {
		registry = hotkey.NewRegistry(hotkey.SystemBackend{}, orch.HandleAction)
		defer registry.Close()

		kb := store.Settings().Keybinds
		if err := registry.SetupDefaults(kb.JoinPrimary, kb.Hangup); err != nil {
			log.Warn("register default shortcuts", "error", err)
		}
		for targetID, combo := range kb.TargetHotkeys {
			if combo == "" {
				continue
			}
			if err := registry.Register(combo, hotkey.JoinTarget(targetID)); err != nil {
				log.Warn("register target shortcut", "target", targetID, "combo", combo, "error", err)
			}
		}
	}

	if cfg.IPC.Enabled {
		handler := ipc.NewDaemonHandler(ipc.HandlerConfig{
			Store:    store,
			Orch:     orch,
			Registry: registry,
			History:  hist,
			Host:     cfg.Conference.Host,
			Version:  version,
		})

		srvCfg := ipc.DefaultServerConfig(cfg.IPC.SocketPath)
		srvCfg.Version = version
		srvCfg.MaxConnections = cfg.IPC.MaxConnections
		srvCfg.ReadTimeout = time.Duration(cfg.IPC.TimeoutSec) * time.Second

		server := ipc.NewServer(srvCfg, handler)
		// Attach before Start so no connection ever races the wiring.
		handler.SetBroadcaster(server)
		if err := server.Start(); err != nil {
			log.Error("start control socket", "error", err)
		} else {
			defer server.Stop()
			machine.Subscribe(func(st call.State) {
				server.Broadcast(&ipc.Event{
					Type:      ipc.EventCallState,
					Timestamp: time.Now().UTC(),
					Data:      map[string]any{"state": st.Tag()},
				})
			})
		}
	}

	log.Info("justcalld running",
		"version", version,
		"settings", cfg.Settings.Path,
		"targets", len(store.Targets()),
		"hotkeys", cfg.Hotkeys.Enabled,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}
	return logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "justcalld",
	})
}
