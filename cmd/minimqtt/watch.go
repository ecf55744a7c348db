package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
	"github.com/vitalvas/minimqtt"
)

// watcher keeps a client connected and subscribed, logging every message.
// It implements service.Interface.
type watcher struct {
	app    *app
	client *minimqtt.Client

	cancel context.CancelFunc
	done   chan struct{}
}

func (a *app) watch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	svcFlag := fs.String("service", "", "Control the system service: install, uninstall, start, stop or restart.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(a.cfg.Subscriptions) == 0 {
		return errors.New("watch: no subscriptions configured")
	}

	w := &watcher{app: a}

	svcConfig := &service.Config{
		Name:        "minimqtt-watch",
		DisplayName: "minimqtt watch",
		Description: "Logs messages from MQTT topic subscriptions.",
	}
	if a.configPath != "" {
		abs, err := filepath.Abs(a.configPath)
		if err != nil {
			return err
		}
		svcConfig.Arguments = []string{"-c", abs, "watch"}
	} else {
		svcConfig.Arguments = []string{"watch"}
	}

	s, err := service.New(w, svcConfig)
	if err != nil {
		return err
	}

	if *svcFlag != "" {
		if err := service.Control(s, *svcFlag); err != nil {
			return fmt.Errorf("%w (valid actions: %q)", err, service.ControlAction)
		}
		return nil
	}

	return s.Run()
}

func (w *watcher) Start(_ service.Service) error {
	c, err := w.app.newClient(minimqtt.OnMessage(w.logMessage))
	if err != nil {
		return err
	}
	w.client = c

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.run(ctx)
	}()
	return nil
}

func (w *watcher) Stop(_ service.Service) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return nil
}

// run owns the client until ctx is cancelled.
func (w *watcher) run(ctx context.Context) {
	c := w.client
	cfg := w.app.cfg
	logger := w.app.log

	defer func() {
		if err := c.Close(); err != nil {
			logger.WithError(err).Warn("closing client")
		}
	}()

	subscribed := false
	for ctx.Err() == nil {
		if !c.IsConnected() {
			if err := c.Reconnect(ctx, cfg.Reconnect.MaxAttempts, true); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.WithError(err).Error("reconnect failed")
				sleepCtx(ctx, cfg.Reconnect.Backoff)
				continue
			}

			// Later reconnects resubscribe from the recorded set.
			if !subscribed {
				if err := w.subscribeConfigured(ctx); err != nil {
					logger.WithError(err).Error("subscribe failed")
				} else {
					subscribed = true
				}
			}
		}

		if _, err := c.Loop(ctx, w.app.pollTimeout()); err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("poll failed")
		}
	}
}

// subscribeConfigured subscribes to the configured filters not already
// restored from the session store.
func (w *watcher) subscribeConfigured(ctx context.Context) error {
	recorded := make(map[string]byte)
	for _, sub := range w.client.Subscriptions() {
		recorded[sub.Topic] = sub.QoS
	}

	var missing []minimqtt.Subscription
	for _, sub := range w.app.cfg.subscriptions() {
		if qos, ok := recorded[sub.Topic]; !ok || qos != sub.QoS {
			missing = append(missing, sub)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return w.client.Subscribe(ctx, missing...)
}

func (w *watcher) logMessage(_ *minimqtt.Client, msg *minimqtt.Message) {
	w.app.log.WithFields(log.Fields{
		"topic":  msg.Topic,
		"qos":    msg.QoS,
		"retain": msg.Retain,
	}).Info(msg.Text())
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
