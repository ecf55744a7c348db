package minimqtt

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxGeneratedClientID is the client identifier length every broker must accept.
const maxGeneratedClientID = 23

// Client is a synchronous MQTT 3.1.1 client.
//
// Every network operation blocks the calling goroutine until it completes,
// times out or fails. There is no background I/O: inbound messages are
// delivered only while Poll, Loop or an acknowledgment wait is running.
// A Client is not safe for concurrent use; callers must serialize access.
type Client struct {
	options  *clientOptions
	server   string
	endpoint endpoint
	dialer   Dialer
	logger   Logger
	metrics  clientMetrics

	// Session state
	conn      Conn
	connected bool
	clientID  string
	will      *Will
	ids       *PacketIDManager
	subs      subscriptionSet
	handlers  topicHandlers

	// Keep-alive tracking
	lastSend        time.Time
	pingOutstanding bool
	pingSentAt      time.Time
}

// New validates the configuration and returns a disconnected client.
// It performs no I/O other than loading subscriptions from a configured
// SessionStore.
//
// server is either a bare host name (the port and TLS follow WithSecure,
// WithPort and WithTLS) or a URL with one of the schemes tcp, mqtt, ssl,
// tls, mqtts, ws, wss, quic or unix.
func New(server string, opts ...Option) (*Client, error) {
	options := applyOptions(opts...)

	if server == "" {
		return nil, fmt.Errorf("%w: server address is required", ErrConfiguration)
	}

	if err := validateOptions(options); err != nil {
		return nil, err
	}

	ep, err := parseServer(server, options)
	if err != nil {
		return nil, err
	}

	c := &Client{
		options:  options,
		server:   server,
		endpoint: ep,
		logger:   options.logger,
		metrics:  clientMetrics{metrics: options.metrics},
		clientID: options.clientID,
		will:     options.will,
		ids:      NewPacketIDManager(),
	}

	if c.clientID == "" {
		c.clientID = generateClientID()
		if len(c.clientID) == 0 || len(c.clientID) > maxGeneratedClientID {
			return nil, ErrClientIDLength
		}
	}

	c.logger = c.logger.WithFields(LogFields{LogFieldClientID: c.clientID})

	if c.dialer, err = c.newDialer(); err != nil {
		return nil, err
	}

	if store := options.sessionStore; store != nil {
		subs, err := store.LoadSubscriptions(c.clientID)
		if err != nil {
			return nil, fmt.Errorf("load subscriptions: %w", err)
		}
		for _, sub := range subs {
			c.subs.add(sub)
		}
		if len(subs) > 0 {
			c.logger.Info("restored subscriptions", LogFields{"count": len(subs)})
		}
	}

	return c, nil
}

func validateOptions(o *clientOptions) error {
	if len(o.clientID) > maxUint16 {
		return ErrStringTooLong
	}

	if len(o.username) > maxUint16 {
		return fmt.Errorf("username: %w", ErrStringTooLong)
	}

	if len(o.password) > maxUint16 {
		return fmt.Errorf("password: %w", ErrBinaryTooLong)
	}

	if len(o.password) > 0 && o.username == "" {
		return ErrPasswordNoUsername
	}

	if o.will != nil {
		if err := o.will.Validate(); err != nil {
			return err
		}
	}

	if o.maxPayloadSize <= 0 || o.maxPayloadSize > maxVarint {
		return fmt.Errorf("%w: maximum payload size must be between 1 and %d", ErrConfiguration, maxVarint)
	}

	if o.port < 0 || o.port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrConfiguration, o.port)
	}

	if o.pollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrConfiguration)
	}

	return nil
}

func generateClientID() string {
	return fmt.Sprintf("minimqtt%d%d", rand.IntN(16), time.Now().UnixNano()%1e12)
}

// endpoint is the resolved broker address and the transport used to reach it.
type endpoint struct {
	transport string // tcp, tls, ws, quic or unix
	address   string // host:port, socket path, or the WebSocket URL
}

func parseServer(server string, o *clientOptions) (endpoint, error) {
	if !strings.Contains(server, "://") {
		port := o.port
		if port == 0 {
			port = DefaultTCPPort
			if o.secure {
				port = DefaultTLSPort
			}
		}

		host := server
		if h, p, err := net.SplitHostPort(server); err == nil {
			host = h
			if o.port == 0 {
				port, _ = strconv.Atoi(p)
			}
		}

		transport := "tcp"
		if port == DefaultTLSPort || o.tlsConfig != nil {
			transport = "tls"
		}

		return endpoint{transport: transport, address: net.JoinHostPort(host, strconv.Itoa(port))}, nil
	}

	u, err := url.Parse(server)
	if err != nil {
		return endpoint{}, fmt.Errorf("%w: invalid server address: %w", ErrConfiguration, err)
	}

	hostPort := func(defaultPort int) string {
		port := u.Port()
		if o.port != 0 {
			port = strconv.Itoa(o.port)
		}
		if port == "" {
			port = strconv.Itoa(defaultPort)
		}
		return net.JoinHostPort(u.Hostname(), port)
	}

	switch u.Scheme {
	case "tcp", "mqtt":
		return endpoint{transport: "tcp", address: hostPort(DefaultTCPPort)}, nil
	case "ssl", "tls", "mqtts":
		return endpoint{transport: "tls", address: hostPort(DefaultTLSPort)}, nil
	case "ws", "wss":
		if o.port != 0 {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(o.port))
		}
		return endpoint{transport: "ws", address: u.String()}, nil
	case "quic":
		return endpoint{transport: "quic", address: hostPort(DefaultTLSPort)}, nil
	case "unix":
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = u.Host + u.Path
		}
		if path == "" {
			return endpoint{}, fmt.Errorf("%w: unix socket path is required", ErrConfiguration)
		}
		return endpoint{transport: "unix", address: path}, nil
	default:
		return endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrConfiguration, u.Scheme)
	}
}

// newDialer picks the dialer for the endpoint, honouring WithDialer and WithProxy.
func (c *Client) newDialer() (Dialer, error) {
	o := c.options
	if o.dialer != nil {
		return o.dialer, nil
	}

	var proxyDialer *ProxyDialer
	if o.proxyURL != "" {
		var err error
		if proxyDialer, err = NewProxyDialer(o.proxyURL); err != nil {
			return nil, err
		}
	}

	switch c.endpoint.transport {
	case "tcp":
		if proxyDialer != nil {
			return proxyDialer, nil
		}
		return &TCPDialer{Timeout: o.connectTimeout}, nil

	case "tls":
		if proxyDialer != nil {
			proxyDialer.TLSConfig = tlsConfigOrDefault(o.tlsConfig)
			return proxyDialer, nil
		}
		return &TLSDialer{Config: o.tlsConfig, Timeout: o.connectTimeout}, nil

	case "ws":
		ws := NewWSDialer()
		ws.Dialer.TLSClientConfig = o.tlsConfig
		ws.Dialer.HandshakeTimeout = o.connectTimeout
		if o.proxyURL != "" {
			u, err := url.Parse(o.proxyURL)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid proxy URL: %w", ErrConfiguration, err)
			}
			ws.Dialer.Proxy = http.ProxyURL(u)
		}
		return ws, nil

	case "quic":
		if proxyDialer != nil {
			c.logger.Warn("proxy is not supported for QUIC, connecting directly", nil)
		}
		return NewQUICDialer(o.tlsConfig), nil

	default:
		return &UnixDialer{}, nil
	}
}

// Connect opens the transport, sends CONNECT and waits for CONNACK.
// It returns the session present flag. A refused connection returns a
// *ConnectError; the transport is closed on every failure.
func (c *Client) Connect(ctx context.Context, cleanSession bool) (bool, error) {
	if c.connected {
		return false, ErrAlreadyConnected
	}

	ctx, cancel := context.WithTimeout(ctx, c.options.connectTimeout)
	defer cancel()

	c.logger.Debug("connecting", LogFields{LogFieldRemoteAddr: c.endpoint.address})

	conn, err := c.dialer.Dial(ctx, c.endpoint.address)
	if err != nil {
		c.logger.Warn("dial failed", LogFields{LogFieldRemoteAddr: c.endpoint.address, LogFieldError: err})
		return false, NewTransportError("dial", err)
	}

	// Abort blocked reads and writes when the context ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sessionPresent, code, err := c.handshake(conn, cleanSession)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil && errors.Is(err, ErrTransport) {
			return false, NewTransportError("connect", ctx.Err())
		}
		return false, err
	}

	if !stop() {
		conn.Close()
		return false, NewTransportError("connect", ctx.Err())
	}
	_ = conn.SetDeadline(time.Time{})

	c.conn = conn
	c.connected = true
	c.lastSend = time.Now()
	c.pingOutstanding = false
	c.ids.Reset()
	c.metrics.connected(code)

	c.logger.Info("connected", LogFields{
		LogFieldRemoteAddr: c.endpoint.address,
		"session_present":  sessionPresent,
	})

	if c.options.onConnect != nil {
		c.options.onConnect(c, sessionPresent, code)
	}

	return sessionPresent, nil
}

// handshake writes CONNECT and reads CONNACK on a fresh connection.
func (c *Client) handshake(conn Conn, cleanSession bool) (bool, ReturnCode, error) {
	pkt := &ConnectPacket{
		ClientID:     c.clientID,
		CleanSession: cleanSession,
		KeepAlive:    c.options.keepAlive,
		Username:     c.options.username,
		Password:     c.options.password,
	}
	c.will.apply(pkt)

	buf := getBytesBuffer()
	defer putBytesBuffer(buf)
	if _, err := pkt.Encode(buf); err != nil {
		return false, 0, err
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return false, 0, NewTransportError("write CONNECT", err)
	}
	c.metrics.packetSent(PacketCONNECT)

	resp, _, err := ReadPacket(conn, 0)
	if err != nil {
		if errors.Is(err, ErrProtocol) || errors.Is(err, ErrUnsupportedFeature) {
			return false, 0, err
		}
		return false, 0, NewTransportError("read CONNACK", err)
	}
	c.metrics.packetReceived(resp.Type())

	connack, ok := resp.(*ConnackPacket)
	if !ok {
		return false, 0, fmt.Errorf("%w: expected CONNACK, got %s", ErrProtocol, resp.Type())
	}

	if !connack.ReturnCode.Accepted() {
		c.metrics.connectRefused(connack.ReturnCode)
		c.logger.Warn("connection refused", LogFields{
			LogFieldReturnCode: byte(connack.ReturnCode),
			LogFieldError:      connack.ReturnCode.String(),
		})
		return false, connack.ReturnCode, NewConnectError(connack.ReturnCode)
	}

	return connack.SessionPresent, connack.ReturnCode, nil
}

// Disconnect sends DISCONNECT, closes the transport and invokes the
// disconnect callback. The broker discards the will.
func (c *Client) Disconnect() error {
	if !c.connected {
		return ErrNotConnected
	}

	var writeErr error
	if err := c.writeRaw(&DisconnectPacket{}); err != nil {
		writeErr = NewTransportError("write DISCONNECT", err)
	}

	c.dropConnection()
	c.logger.Info("disconnected", nil)

	if c.options.onDisconnect != nil {
		c.options.onDisconnect(c)
	}

	return writeErr
}

// Ping sends PINGREQ and requires the next packet from the broker to be PINGRESP.
func (c *Client) Ping(ctx context.Context) error {
	if !c.connected {
		return ErrNotConnected
	}

	if err := c.writePacket(&PingreqPacket{}); err != nil {
		return err
	}

	start := time.Now()
	first, err := c.nextFirstByte(ctx, start, PacketPINGRESP)
	if err != nil {
		return err
	}

	pkt, err := c.readRest(first)
	if err != nil {
		return err
	}

	if _, ok := pkt.(*PingrespPacket); !ok {
		// Still deliver and acknowledge a message that arrived first.
		if p, isPublish := pkt.(*PublishPacket); isPublish {
			if err := c.handlePublish(p); err != nil {
				return err
			}
		}
		return fmt.Errorf("%w: expected PINGRESP, got %s", ErrProtocol, pkt.Type())
	}

	c.pingOutstanding = false
	c.metrics.ackLatency(PacketPINGRESP, time.Since(start))
	return nil
}

// Close releases the client's connection, sending DISCONNECT when connected.
// It is safe to call more than once.
func (c *Client) Close() error {
	if c.connected {
		err := c.Disconnect()
		if errors.Is(err, ErrTransport) {
			return nil
		}
		return err
	}

	if c.conn != nil {
		c.dropConnection()
	}
	return nil
}

// IsConnected reports whether the client holds an accepted connection.
func (c *Client) IsConnected() bool {
	return c.connected
}

// ClientID returns the client identifier sent in CONNECT.
func (c *Client) ClientID() string {
	return c.clientID
}

// MaxPayloadSize returns the largest payload Publish accepts.
func (c *Client) MaxPayloadSize() int {
	return c.options.maxPayloadSize
}

// SetLogLevel changes the level of the configured logger.
func (c *Client) SetLogLevel(level LogLevel) {
	c.logger.SetLevel(level)
}

// SetWill sets the last will for the next Connect.
func (c *Client) SetWill(will Will) error {
	if c.connected {
		return ErrWillWhileOnline
	}

	if err := will.Validate(); err != nil {
		return err
	}

	c.will = &will
	return nil
}

// ClearWill removes the last will for the next Connect.
func (c *Client) ClearWill() error {
	if c.connected {
		return ErrWillWhileOnline
	}

	c.will = nil
	return nil
}

// Subscriptions returns the recorded subscriptions in the order they were made.
func (c *Client) Subscriptions() []Subscription {
	return c.subs.list()
}

// AddTopicHandler routes messages matching filter to handler instead of the
// OnMessage callback. A second handler for the same filter replaces the first.
func (c *Client) AddTopicHandler(filter string, handler MessageHandler) error {
	if err := ValidateTopicFilter(filter); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: handler is nil", ErrConfiguration)
	}

	c.handlers.add(filter, handler)
	return nil
}

// RemoveTopicHandler removes the handler for filter. Reports whether one was registered.
func (c *Client) RemoveTopicHandler(filter string) bool {
	return c.handlers.remove(filter)
}

// writePacket encodes pkt and writes it in one call. A transport failure
// closes the connection.
func (c *Client) writePacket(pkt Packet) error {
	if err := c.writeRaw(pkt); err != nil {
		if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrProtocol) {
			return err
		}
		return c.fail("write "+pkt.Type().String(), err)
	}
	return nil
}

func (c *Client) writeRaw(pkt Packet) error {
	buf := getBytesBuffer()
	defer putBytesBuffer(buf)
	if _, err := pkt.Encode(buf); err != nil {
		return err
	}

	if c.options.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.options.writeTimeout))
	}

	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		return err
	}

	c.lastSend = time.Now()
	c.metrics.packetSent(pkt.Type())
	c.logger.Debug("packet sent", LogFields{
		LogFieldPacketType: pkt.Type().String(),
		LogFieldBytes:      len(buf.Bytes()),
	})
	return nil
}

// fail closes the connection after a transport error and returns the wrapped error.
func (c *Client) fail(op string, err error) error {
	c.logger.Error("transport failure", LogFields{"op": op, LogFieldError: err})
	c.dropConnection()
	return NewTransportError(op, err)
}

func (c *Client) dropConnection() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.connected {
		c.metrics.disconnected()
	}
	c.connected = false
	c.pingOutstanding = false
	c.ids.Reset()
}
