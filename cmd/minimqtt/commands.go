package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vitalvas/minimqtt"
)

func (a *app) pub(args []string) error {
	fs := flag.NewFlagSet("pub", flag.ContinueOnError)
	topic := fs.String("t", "", "Topic to publish to.")
	message := fs.String("m", "", "Message payload.")
	file := fs.String("f", "", "Read the payload from a file; \"-\" reads stdin.")
	qos := fs.Uint("q", 0, "Quality of service (0 or 1).")
	retain := fs.Bool("r", false, "Ask the broker to retain the message.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *topic == "" {
		return errors.New("pub: -t is required")
	}
	if *qos > 2 {
		return fmt.Errorf("pub: %w", minimqtt.ErrInvalidQoS)
	}

	var payload []byte
	switch *file {
	case "":
		payload = []byte(*message)
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("pub: read stdin: %w", err)
		}
		payload = data
	default:
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("pub: %w", err)
		}
		payload = data
	}

	c, err := a.newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := c.Connect(ctx, true); err != nil {
		return err
	}

	if err := c.Publish(ctx, *topic, payload, byte(*qos), *retain); err != nil {
		return err
	}

	return c.Disconnect()
}

func (a *app) sub(args []string) error {
	fs := flag.NewFlagSet("sub", flag.ContinueOnError)
	var topics topicList
	fs.Var(&topics, "t", "Topic filter to subscribe to. May be repeated.")
	qos := fs.Uint("q", 0, "Requested quality of service.")
	count := fs.Int("n", 0, "Exit after this many messages. 0 runs until interrupted.")
	verbose := fs.Bool("v", false, "Print the topic before each payload.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	subs := a.cfg.subscriptions()
	for _, t := range topics {
		subs = append(subs, minimqtt.Subscription{Topic: t, QoS: byte(*qos)})
	}
	if len(subs) == 0 {
		return errors.New("sub: at least one -t or configured subscription is required")
	}

	received := 0
	c, err := a.newClient(minimqtt.OnMessage(func(_ *minimqtt.Client, msg *minimqtt.Message) {
		received++
		if *verbose {
			fmt.Fprintf(a.out, "%s %s\n", msg.Topic, msg.Payload)
			return
		}
		fmt.Fprintf(a.out, "%s\n", msg.Payload)
	}))
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := c.Connect(ctx, true); err != nil {
		return err
	}

	if err := c.Subscribe(ctx, subs...); err != nil {
		return err
	}

	for *count == 0 || received < *count {
		if _, err := c.Loop(ctx, a.pollTimeout()); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
	}

	return c.Disconnect()
}

func (a *app) ping(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	count := fs.Int("n", 4, "Number of pings.")
	interval := fs.Duration("i", time.Second, "Pause between pings.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := a.newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := c.Connect(ctx, true); err != nil {
		return err
	}

	for i := range *count {
		if i > 0 {
			select {
			case <-ctx.Done():
				return c.Disconnect()
			case <-time.After(*interval):
			}
		}

		start := time.Now()
		if err := c.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "PINGRESP from %s: seq=%d time=%s\n", a.cfg.Broker.Server, i+1, time.Since(start).Round(time.Microsecond))
	}

	return c.Disconnect()
}

// pollTimeout is how long each Loop call waits for a packet.
func (a *app) pollTimeout() time.Duration {
	if a.cfg.Timeouts.Poll > 0 {
		return a.cfg.Timeouts.Poll
	}
	return 500 * time.Millisecond
}
