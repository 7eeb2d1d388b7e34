// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package communication

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/protocol"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MaxFrameSize bounds the length of a single received frame.
const MaxFrameSize = 1 << 24

var (
	ErrUnknownParty  = errors.New("communication: unknown party")
	ErrFrameTooLarge = errors.New("communication: frame too large")
	// ErrPeerIdentity means a peer's certificate does not name the party it claims to be.
	ErrPeerIdentity = errors.New("communication: certificate does not match party")
)

// peer is a connection to another party. Writes and reads are serialized separately.
type peer struct {
	conn  net.Conn
	wmtx  sync.Mutex
	rmtx  sync.Mutex
	rbuf  [4]byte
	wbuf  [4]byte
	alive bool
}

// LocalConn holds the connections of the local party to all the other ones.
// It implements protocol.Network over length-prefixed frames.
type LocalConn struct {
	LocalConfig *LocalConfig
	IDConnMap   map[party.ID]*peer
	TLSConfig   *tls.Config
	listener    net.Listener
	mtx         sync.Mutex
}

var _ protocol.Network = (*LocalConn)(nil)

// LoadCertPool returns a pool containing the CA certificate at caPath.
func LoadCertPool(caPath string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	caCrt, err := os.ReadFile(caPath)
	if err != nil {
		log.Errorln("fail read ca file", caPath)
		return nil, err
	}
	if !pool.AppendCertsFromPEM(caCrt) {
		return nil, fmt.Errorf("communication: no certificate in %s", caPath)
	}
	return pool, nil
}

// LoadTLSConfig builds a mutual TLS configuration: peers present certificates signed by the CA.
func LoadTLSConfig(caPath, certPath, keyPath string) (*tls.Config, error) {
	pool, err := LoadCertPool(caPath)
	if err != nil {
		return nil, err
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		log.Errorln("fail load key pair", certPath, keyPath)
		return nil, err
	}
	return &tls.Config{
		RootCAs:      pool,
		ClientCAs:    pool,
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// NewLocalConn prepares the connections described by config. Nothing is dialed until Connect.
func NewLocalConn(config *LocalConfig) (*LocalConn, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &LocalConn{
		LocalConfig: config,
		IDConnMap:   make(map[party.ID]*peer, len(config.OtherPartyInfo)),
	}
	if config.UseTLS() {
		tlsConfig, err := LoadTLSConfig(config.CaPath, config.CertPath, config.KeyPath)
		if err != nil {
			return nil, err
		}
		c.TLSConfig = tlsConfig
	}
	return c, nil
}

// Connect dials every party with the server role and accepts a connection from every party with
// the client role. It returns once all parties are connected, or the timeout expires.
func (c *LocalConn) Connect(ctx context.Context) error {
	if c.LocalConfig.TimeOutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.LocalConfig.TimeOutSecond)*time.Second)
		defer cancel()
	}

	clients := map[party.ID]bool{}
	var servers []Party
	for _, p := range c.LocalConfig.OtherPartyInfo {
		if p.ConnRole == RoleClient {
			clients[p.ID] = true
		} else {
			servers = append(servers, p)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if len(clients) > 0 {
		listener, err := c.listen()
		if err != nil {
			return err
		}
		g.Go(func() error { return c.acceptAll(ctx, listener, clients) })
	}
	for _, p := range servers {
		p := p
		g.Go(func() error { return c.dial(ctx, p) })
	}
	if err := g.Wait(); err != nil {
		c.Close()
		return err
	}
	log.Infof("party %v connected to %v", c.LocalConfig.LocalID, c.LocalConfig.OtherPartyIDs())
	return nil
}

func (c *LocalConn) listen() (net.Listener, error) {
	var (
		listener net.Listener
		err      error
	)
	if c.TLSConfig != nil {
		listener, err = tls.Listen("tcp", c.LocalConfig.LocalAddr, c.TLSConfig)
	} else {
		listener, err = net.Listen("tcp", c.LocalConfig.LocalAddr)
	}
	if err != nil {
		log.Errorln("fail listen", c.LocalConfig.LocalAddr)
		return nil, err
	}
	c.mtx.Lock()
	c.listener = listener
	c.mtx.Unlock()
	return listener, nil
}

func (c *LocalConn) acceptAll(ctx context.Context, listener net.Listener, expected map[party.ID]bool) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = listener.Close()
		case <-stop:
		}
	}()

	for remaining := len(expected); remaining > 0; {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		id, err := readID(conn)
		if err != nil {
			log.Warnf("dropping connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}
		if !expected[id] || c.connected(id) {
			log.Warnf("dropping unexpected connection from %v at %s", id, conn.RemoteAddr())
			_ = conn.Close()
			continue
		}
		if err = verifyPeer(conn, c.partyInfo(id)); err != nil {
			log.Warnf("dropping connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}
		c.addPeer(id, conn)
		remaining--
		log.Debugf("accepted %v", id)
	}
	return nil
}

// dial retries until the server side of p is up, then introduces itself.
func (c *LocalConn) dial(ctx context.Context, p Party) error {
	dialer := &net.Dialer{}
	for {
		var (
			conn net.Conn
			err  error
		)
		if c.TLSConfig != nil {
			tlsDialer := &tls.Dialer{NetDialer: dialer, Config: c.TLSConfig}
			conn, err = tlsDialer.DialContext(ctx, "tcp", p.Address)
		} else {
			conn, err = dialer.DialContext(ctx, "tcp", p.Address)
		}
		if err == nil {
			if err = verifyPeer(conn, p); err != nil {
				_ = conn.Close()
				return err
			}
			if err = writeID(conn, c.LocalConfig.LocalID); err != nil {
				_ = conn.Close()
				return err
			}
			c.addPeer(p.ID, conn)
			log.Debugf("connected to %v at %s", p.ID, p.Address)
			return nil
		}
		log.Debugf("waiting for %v at %s: %v", p.ID, p.Address, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("communication: failed to connect to %v: %w", p.ID, ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// verifyPeer checks that the certificate presented on conn names p. Plain TCP connections carry
// no identity.
func verifyPeer(conn net.Conn, p Party) error {
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return fmt.Errorf("%w: %v presented no certificate", ErrPeerIdentity, p.ID)
	}
	name := p.ExpectedCertName()
	leaf := certs[0]
	if leaf.Subject.CommonName == name {
		return nil
	}
	for _, dns := range leaf.DNSNames {
		if dns == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %v expects %q, got %q", ErrPeerIdentity, p.ID, name, leaf.Subject.CommonName)
}

func (c *LocalConn) partyInfo(id party.ID) Party {
	for _, p := range c.LocalConfig.OtherPartyInfo {
		if p.ID == id {
			return p
		}
	}
	return Party{ID: id}
}

func (c *LocalConn) addPeer(id party.ID, conn net.Conn) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.IDConnMap[id] = &peer{conn: conn, alive: true}
}

func (c *LocalConn) connected(id party.ID) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	_, ok := c.IDConnMap[id]
	return ok
}

func (c *LocalConn) peer(id party.ID) (*peer, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	p, ok := c.IDConnMap[id]
	if !ok || !p.alive {
		return nil, fmt.Errorf("%w: %v", ErrUnknownParty, id)
	}
	return p, nil
}

// Close closes every connection and the listener.
func (c *LocalConn) Close() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.listener != nil {
		_ = c.listener.Close()
		c.listener = nil
	}
	for _, p := range c.IDConnMap {
		if p.alive {
			_ = p.conn.Close()
			p.alive = false
		}
	}
}

// Send writes a single frame to `to`.
func (c *LocalConn) Send(ctx context.Context, to party.ID, data []byte) error {
	p, err := c.peer(to)
	if err != nil {
		return err
	}
	p.wmtx.Lock()
	defer p.wmtx.Unlock()

	defer watch(ctx, p.conn.SetWriteDeadline)()
	binary.BigEndian.PutUint32(p.wbuf[:], uint32(len(data)))
	if _, err = p.conn.Write(p.wbuf[:]); err != nil {
		return err
	}
	_, err = p.conn.Write(data)
	return err
}

// Receive reads the next frame from `from`.
func (c *LocalConn) Receive(ctx context.Context, from party.ID) ([]byte, error) {
	p, err := c.peer(from)
	if err != nil {
		return nil, err
	}
	p.rmtx.Lock()
	defer p.rmtx.Unlock()

	defer watch(ctx, p.conn.SetReadDeadline)()
	if _, err = io.ReadFull(p.conn, p.rbuf[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(p.rbuf[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes from %v", ErrFrameTooLarge, size, from)
	}
	data := make([]byte, size)
	if _, err = io.ReadFull(p.conn, data); err != nil {
		return nil, err
	}
	return data, nil
}

// SendToAll writes data to every other party concurrently.
func (c *LocalConn) SendToAll(ctx context.Context, data []byte) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range c.LocalConfig.OtherPartyIDs() {
		id := id
		g.Go(func() error { return c.Send(ctx, id, data) })
	}
	return g.Wait()
}

// ReceiveFromAll reads one frame from every other party concurrently.
func (c *LocalConn) ReceiveFromAll(ctx context.Context) (map[party.ID][]byte, error) {
	ids := c.LocalConfig.OtherPartyIDs()
	var mtx sync.Mutex
	out := make(map[party.ID][]byte, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			data, err := c.Receive(ctx, id)
			if err != nil {
				return fmt.Errorf("party %v: %w", id, err)
			}
			mtx.Lock()
			out[id] = data
			mtx.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// watch interrupts blocked I/O when ctx is done, by moving the deadline into the past.
// The returned function clears the deadline again.
func watch(ctx context.Context, setDeadline func(time.Time) error) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = setDeadline(deadline)
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			_ = setDeadline(time.Unix(1, 0))
		case <-stop:
		}
	}()
	return func() {
		close(stop)
		<-done
		_ = setDeadline(time.Time{})
	}
}

func writeID(conn net.Conn, id party.ID) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(id))
	_, err := conn.Write(buf[:])
	return err
}

func readID(conn net.Conn) (party.ID, error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	var buf [2]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return 0, err
	}
	return party.ID(binary.BigEndian.Uint16(buf[:])), nil
}
