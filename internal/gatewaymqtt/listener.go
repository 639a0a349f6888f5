// Package gatewaymqtt accepts MQTT 3.1.1 connections from BLE gateways and
// hands their published sighting payloads to the application. It is an
// ingest-only endpoint: gateways publish, the server never sends application
// messages back, and subscription requests are refused.
package gatewaymqtt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Packet type values from the MQTT 3.1.1 fixed header.
const (
	packetConnect     = 1
	packetPublish     = 3
	packetSubscribe   = 8
	packetUnsubscribe = 10
	packetPingReq     = 12
	packetDisconnect  = 14
)

// Uplink is one publish received from a gateway. GatewayID is the MQTT
// client identifier; RemoteAddr is the TCP peer, usable as a fallback source
// address when the payload carries none.
type Uplink struct {
	GatewayID  string
	RemoteAddr string
	Topic      string
	Payload    []byte
}

// Handler is invoked for each received uplink. The PUBACK for a QoS 1
// publish is written only after the handler returns.
type Handler func(context.Context, Uplink)

type gatewayConn struct {
	conn      net.Conn
	reader    *bufio.Reader
	writeMu   sync.Mutex
	gatewayID string
	closed    atomic.Bool
}

func (g *gatewayConn) writePacket(packet []byte) error {
	if g.closed.Load() {
		return net.ErrClosed
	}
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	_, err := g.conn.Write(packet)
	return err
}

// Listener owns the TCP accept loop and per-gateway sessions.
type Listener struct {
	logger       *slog.Logger
	handler      atomic.Value // stores Handler
	mu           sync.Mutex
	listener     net.Listener
	wg           sync.WaitGroup
	shuttingDown atomic.Bool

	connsMu sync.Mutex
	conns   map[*gatewayConn]struct{}
}

// New constructs a listener with the supplied logger.
func New(logger *slog.Logger) *Listener {
	l := &Listener{logger: logger, conns: make(map[*gatewayConn]struct{})}
	l.handler.Store(Handler(func(context.Context, Uplink) {}))
	return l
}

// SetHandler installs the function invoked for each uplink.
func (l *Listener) SetHandler(h Handler) {
	if h == nil {
		h = func(context.Context, Uplink) {}
	}
	l.handler.Store(h)
}

// Start begins accepting gateway connections on the bind address. The
// returned channel is closed when the accept loop terminates; fatal errors
// are sent on it first.
func (l *Listener) Start(bind string) (<-chan error, error) {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("mqtt listen: %w", err)
	}

	l.mu.Lock()
	l.listener = ln
	l.mu.Unlock()

	errCh := make(chan error, 1)

	l.logger.Info("gateway mqtt listener started", "addr", bind)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if l.shuttingDown.Load() {
					close(errCh)
					return
				}
				if ne, ok := err.(net.Error); ok && ne.Temporary() {
					l.logger.Warn("temporary accept error", "error", err)
					time.Sleep(50 * time.Millisecond)
					continue
				}
				errCh <- fmt.Errorf("mqtt accept: %w", err)
				close(errCh)
				return
			}

			session := &gatewayConn{conn: conn, reader: bufio.NewReader(conn)}
			l.addConn(session)

			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				l.serve(session)
			}()
		}
	}()

	return errCh, nil
}

// Addr returns the bound listener address, or "" before Start.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

// Stop closes the listener and every gateway connection and waits for the
// session goroutines to drain.
func (l *Listener) Stop() error {
	if !l.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	l.mu.Lock()
	ln := l.listener
	l.listener = nil
	l.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}

	l.connsMu.Lock()
	for session := range l.conns {
		session.closed.Store(true)
		_ = session.conn.Close()
	}
	l.conns = make(map[*gatewayConn]struct{})
	l.connsMu.Unlock()

	l.wg.Wait()
	return nil
}

func (l *Listener) addConn(session *gatewayConn) {
	l.connsMu.Lock()
	l.conns[session] = struct{}{}
	l.connsMu.Unlock()
}

func (l *Listener) removeConn(session *gatewayConn) {
	l.connsMu.Lock()
	delete(l.conns, session)
	l.connsMu.Unlock()
}

func (l *Listener) serve(session *gatewayConn) {
	defer func() {
		session.closed.Store(true)
		l.removeConn(session)
		_ = session.conn.Close()
	}()

	ctx := context.Background()

	for {
		header, err := session.reader.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.logger.Debug("read header error", "error", err)
			}
			return
		}

		remaining, err := readRemainingLength(session.reader)
		if err != nil {
			l.logger.Debug("read remaining length error", "error", err)
			return
		}

		body := make([]byte, remaining)
		if _, err := io.ReadFull(session.reader, body); err != nil {
			l.logger.Debug("read packet body error", "error", err)
			return
		}

		switch header >> 4 {
		case packetConnect:
			if err := l.handleConnect(session, body); err != nil {
				l.logger.Debug("handle connect error", "error", err)
				return
			}
		case packetPublish:
			if err := l.handlePublish(ctx, session, header, body); err != nil {
				l.logger.Debug("handle publish error", "gateway", session.gatewayID, "error", err)
				return
			}
		case packetSubscribe:
			// Gateways have no business subscribing; refuse every topic.
			if err := l.refuseSubscribe(session, body); err != nil {
				l.logger.Debug("refuse subscribe error", "error", err)
				return
			}
		case packetUnsubscribe:
			if err := writeUnsubAck(session, body); err != nil {
				l.logger.Debug("write unsuback error", "error", err)
				return
			}
		case packetPingReq:
			if err := session.writePacket([]byte{0xD0, 0x00}); err != nil {
				l.logger.Debug("write pingresp error", "error", err)
				return
			}
		case packetDisconnect:
			return
		default:
			l.logger.Debug("unsupported packet", "type", header>>4)
			return
		}
	}
}

func (l *Listener) handleConnect(session *gatewayConn, body []byte) error {
	rd := wireReader(body)

	protoName, err := rd.readString()
	if err != nil {
		return fmt.Errorf("read protocol name: %w", err)
	}
	if protoName != "MQTT" {
		return fmt.Errorf("unsupported protocol %q", protoName)
	}

	level, err := rd.readByte()
	if err != nil {
		return fmt.Errorf("read protocol level: %w", err)
	}
	if level != 4 { // MQTT 3.1.1
		return fmt.Errorf("unsupported protocol level %d", level)
	}

	flags, err := rd.readByte()
	if err != nil {
		return fmt.Errorf("read connect flags: %w", err)
	}
	// Will, auth, and session-state flags are out of scope for gateway uplinks.
	if flags&0xFC != 0 {
		return fmt.Errorf("unsupported connect flags %08b", flags)
	}

	if _, err := rd.readUint16(); err != nil { // keep alive
		return fmt.Errorf("read keepalive: %w", err)
	}

	gatewayID, err := rd.readString()
	if err != nil {
		return fmt.Errorf("read client id: %w", err)
	}
	if gatewayID == "" {
		gatewayID = fmt.Sprintf("gateway-%d", time.Now().UnixNano())
	}
	session.gatewayID = gatewayID

	l.logger.Info("gateway connected", "gateway", gatewayID, "remote", session.conn.RemoteAddr())

	if err := session.writePacket([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
		return fmt.Errorf("write connack: %w", err)
	}
	return nil
}

func (l *Listener) handlePublish(ctx context.Context, session *gatewayConn, header byte, body []byte) error {
	qos := (header >> 1) & 0x03
	if qos > 1 {
		return fmt.Errorf("unsupported qos %d", qos)
	}

	rd := wireReader(body)
	topic, err := rd.readString()
	if err != nil {
		return fmt.Errorf("read topic: %w", err)
	}

	var packetID uint16
	if qos == 1 {
		packetID, err = rd.readUint16()
		if err != nil {
			return fmt.Errorf("read packet id: %w", err)
		}
	}

	uplink := Uplink{
		GatewayID:  session.gatewayID,
		RemoteAddr: session.conn.RemoteAddr().String(),
		Topic:      topic,
		Payload:    rd.rest(),
	}

	if h, ok := l.handler.Load().(Handler); ok {
		invokeHandler(h, ctx, uplink, l.logger)
	}

	if qos == 1 {
		puback := []byte{0x40, 0x02, byte(packetID >> 8), byte(packetID & 0xFF)}
		if err := session.writePacket(puback); err != nil {
			return fmt.Errorf("write puback: %w", err)
		}
	}
	return nil
}

// refuseSubscribe acknowledges a SUBSCRIBE with the failure return code for
// every requested topic.
func (l *Listener) refuseSubscribe(session *gatewayConn, body []byte) error {
	rd := wireReader(body)

	packetID, err := rd.readUint16()
	if err != nil {
		return fmt.Errorf("read packet id: %w", err)
	}

	topics := 0
	for rd.remaining() > 0 {
		if _, err := rd.readString(); err != nil {
			return fmt.Errorf("read topic: %w", err)
		}
		if _, err := rd.readByte(); err != nil {
			return fmt.Errorf("read qos: %w", err)
		}
		topics++
	}
	if topics == 0 {
		return fmt.Errorf("subscribe without topics")
	}

	l.logger.Warn("refused gateway subscription", "gateway", session.gatewayID, "topics", topics)

	remaining := 2 + topics
	packet := make([]byte, 0, 1+4+remaining)
	packet = append(packet, 0x90)
	packet = append(packet, encodeRemainingLength(remaining)...)
	packet = append(packet, byte(packetID>>8), byte(packetID&0xFF))
	for i := 0; i < topics; i++ {
		packet = append(packet, 0x80) // failure return code
	}
	return session.writePacket(packet)
}

func writeUnsubAck(session *gatewayConn, body []byte) error {
	rd := wireReader(body)
	packetID, err := rd.readUint16()
	if err != nil {
		return fmt.Errorf("read packet id: %w", err)
	}
	return session.writePacket([]byte{0xB0, 0x02, byte(packetID >> 8), byte(packetID & 0xFF)})
}

func invokeHandler(h Handler, ctx context.Context, uplink Uplink, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("uplink handler panic", "panic", r)
		}
	}()
	h(ctx, uplink)
}
