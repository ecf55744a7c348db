// Package minimqtt is a small synchronous MQTT 3.1.1 client.
//
// It implements the client side of the MQTT Version 3.1.1 OASIS Standard:
// https://docs.oasis-open.org/mqtt/mqtt/v3.1.1/mqtt-v3.1.1.html
//
// # Features
//
//   - CONNECT with clean or persistent sessions, credentials and a last will
//   - PUBLISH at QoS 0 and QoS 1; QoS 2 fails with ErrUnsupportedFeature
//   - SUBSCRIBE, UNSUBSCRIBE and PINGREQ with synchronous acknowledgment waits
//   - Transports: TCP, TLS, WebSocket, QUIC, Unix sockets, SOCKS5 and HTTP proxies
//   - Topic handlers with wildcard matching (+, #)
//   - Reconnection with resubscription, optionally persisted in a SessionStore
//
// # Execution model
//
// The client has no background goroutines. Every call blocks until it
// completes, and inbound messages are delivered only from inside Poll, Loop
// or a method waiting for an acknowledgment. Callbacks run on the calling
// goroutine. A Client must not be used from several goroutines at once.
//
// # Usage
//
//	client, err := minimqtt.New("broker.example.com",
//	    minimqtt.WithSecure(false),
//	    minimqtt.WithKeepAlive(60),
//	    minimqtt.OnMessage(func(c *minimqtt.Client, msg *minimqtt.Message) {
//	        fmt.Printf("%s: %s\n", msg.Topic, msg.Text())
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if _, err := client.Connect(ctx, true); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.SubscribeTopic(ctx, "sensors/+/temperature", 1); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.Publish(ctx, "sensors/kitchen/temperature", 21.5, 1, false); err != nil {
//	    log.Fatal(err)
//	}
//
//	for ctx.Err() == nil {
//	    if _, err := client.Loop(ctx, time.Second); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Server addresses
//
// A bare host name connects on port 8883 with TLS, or on 1883 without TLS
// after WithSecure(false). A URL selects the transport by scheme:
//
//	tcp://host:1883, mqtt://host        plain TCP
//	ssl://host, tls://host, mqtts://host  TLS, port 8883 by default
//	ws://host/mqtt, wss://host/mqtt      WebSocket, subprotocol "mqtt"
//	quic://host:8883                     QUIC, ALPN "mqtt"
//	unix:///run/mosquitto.sock           Unix domain socket
//
// # Errors
//
// Errors belong to one of six categories, checked with errors.Is:
// ErrConfiguration, ErrState, ErrProtocol, ErrUnsupportedFeature,
// ErrTransport and ErrAckTimeout. A refused connection returns a
// *ConnectError carrying the CONNACK return code, and a refused subscription
// returns a *SubscribeError. Transport errors close the connection.
package minimqtt
