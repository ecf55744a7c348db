// Command minimqtt publishes, subscribes and pings MQTT 3.1.1 brokers.
//
// Usage:
//
//	minimqtt [-c config.yaml] [-server url] [-log-level level] <command> [flags]
//
// Commands:
//
//	pub    publish one message
//	sub    print messages from one or more topic filters
//	ping   measure PINGREQ round trips
//	watch  log messages from the configured subscriptions, reconnecting as
//	       needed; can be installed as a system service
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/vitalvas/minimqtt"
)

var errUsage = errors.New("usage: minimqtt [-c config] [-server url] [-log-level level] pub|sub|ping|watch [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("minimqtt", flag.ContinueOnError)
	configPath := fs.String("c", "", "Path of the YAML config file.")
	server := fs.String("server", "", "Broker host name or URL. Overrides the config file.")
	level := fs.String("log-level", "", "Log level (debug, info, warn, error, none). Overrides the config file.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Broker.Server = *server
	}
	if *level != "" {
		if _, err := minimqtt.ParseLogLevel(*level); err != nil {
			return err
		}
		cfg.Logging.Level = *level
	}

	a, err := newApp(cfg, *configPath, out)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "pub":
		return a.pub(cmdArgs)
	case "sub":
		return a.sub(cmdArgs)
	case "ping":
		return a.ping(cmdArgs)
	case "watch":
		return a.watch(cmdArgs)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// app holds what every command shares: configuration, logging and the
// session store.
type app struct {
	cfg        *Config
	configPath string
	out        io.Writer
	log        *log.Logger
	logFile    *os.File
	store      minimqtt.SessionStore
}

func newApp(cfg *Config, configPath string, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, configPath: configPath, out: out, log: log.New()}

	if cfg.Logging.Format == "json" {
		a.log.SetFormatter(&log.JSONFormatter{})
	} else {
		a.log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.log.SetOutput(f)
		a.logFile = f
	}

	switch cfg.Session.Store {
	case "memory":
		a.store = minimqtt.NewMemorySessionStore()
	case "badger":
		store, err := minimqtt.NewBadgerSessionStore(cfg.Session.Dir)
		if err != nil {
			a.close()
			return nil, err
		}
		a.store = store
	}

	return a, nil
}

func (a *app) close() {
	if store, ok := a.store.(io.Closer); ok {
		if err := store.Close(); err != nil {
			a.log.WithError(err).Warn("closing session store")
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// newClient builds a client from the configuration plus extra options.
func (a *app) newClient(extra ...minimqtt.Option) (*minimqtt.Client, error) {
	opts, err := a.cfg.ClientOptions()
	if err != nil {
		return nil, err
	}

	level, err := minimqtt.ParseLogLevel(a.cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	opts = append(opts, minimqtt.WithLogger(minimqtt.NewLogrusLogger(a.log, level)))

	if a.store != nil {
		opts = append(opts, minimqtt.WithSessionStore(a.store))
	}

	return minimqtt.New(a.cfg.Broker.Server, append(opts, extra...)...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// topicList collects a repeated -t flag.
type topicList []string

func (t *topicList) String() string { return strings.Join(*t, ",") }

func (t *topicList) Set(v string) error {
	*t = append(*t, v)
	return nil
}
