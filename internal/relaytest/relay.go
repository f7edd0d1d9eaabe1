// Package relaytest is an in-process matchmaking relay for tests.
//
// It speaks the relay side of the client protocol: version and capacity
// greeting, host registration, host listing, connection requests and
// answers. Once a host accepts a guest, frames are forwarded blindly between
// the two connections.
package relaytest

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/internal/log"
	"github.com/floegence/safechat/realtime/ws"
	"gopkg.in/op/go-logging.v1"
)

type Config struct {
	Version    int32           // Protocol version announced to clients (default 1).
	MaxClients int             // Connections beyond this are told the relay is full; 0 means unlimited.
	Logger     *logging.Logger // Optional.
}

// Server is a relay. The zero value is not usable; call New.
type Server struct {
	cfg Config
	log *logging.Logger

	mu      sync.Mutex
	nextID  int32
	peers   map[int32]*peer
	conns   map[net.Conn]struct{}
	closed  bool
	lns     []net.Listener
	serving sync.WaitGroup
}

type peer struct {
	id   int32
	name string
	conn net.Conn

	writeMu sync.Mutex

	// Guarded by Server.mu.
	hosting bool
	pending *peer // Guest awaiting this host's answer.
	waiting *peer // Host this guest asked for.
	partner *peer
}

func (p *peer) send(cmd frame.Command, payload []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return frame.Write(p.conn, cmd, payload)
}

func New(cfg Config) *Server {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	l := cfg.Logger
	if l == nil {
		l = log.Discard().GetLogger("relay")
	}
	return &Server{
		cfg:   cfg,
		log:   l,
		peers: make(map[int32]*peer),
		conns: make(map[net.Conn]struct{}),
	}
}

// Serve accepts TCP clients on ln until ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return net.ErrClosed
	}
	s.lns = append(s.lns, ln)
	s.mu.Unlock()
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.ServeConn(c)
	}
}

// Handler serves clients that reach the relay over WebSocket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := ws.Upgrade(w, r, ws.UpgraderOptions{ReadLimit: frame.HeaderLen + frame.MaxBlockSize})
		if err != nil {
			s.log.Warningf("upgrade: %v", err)
			return
		}
		s.ServeConn(c)
	})
}

// Close disconnects every client and stops the listeners passed to Serve.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	lns := s.lns
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, ln := range lns {
		_ = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	s.serving.Wait()
}

// Hosts returns the names of hosts currently open to requests.
func (s *Server) Hosts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, p := range s.openHostsLocked() {
		names = append(names, p.name)
	}
	return names
}

// ServeConn runs the relay protocol on c and closes it when the client leaves.
func (s *Server) ServeConn(c net.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = c.Close()
		return
	}
	full := s.cfg.MaxClients > 0 && len(s.conns) >= s.cfg.MaxClients
	s.conns[c] = struct{}{}
	s.serving.Add(1)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.Close()
		s.serving.Done()
	}()

	p := &peer{conn: c}
	if err := p.send(frame.CommandData, frame.Int32(s.cfg.Version)); err != nil {
		return
	}
	fullFlag := []byte{0}
	if full {
		fullFlag[0] = 1
	}
	if err := p.send(frame.CommandData, fullFlag); err != nil || full {
		return
	}
	f, err := frame.Read(c)
	if err != nil || f.Command != frame.CommandName {
		return
	}
	p.name = frame.ParseCString(f.Payload)

	s.mu.Lock()
	s.nextID++
	p.id = s.nextID
	s.peers[p.id] = p
	s.mu.Unlock()
	s.log.Infof("client %d joined as %q", p.id, p.name)
	defer s.leave(p)

	for {
		f, err := frame.Read(c)
		if err != nil {
			s.log.Debugf("client %d: read: %v", p.id, err)
			return
		}
		if !s.handle(p, f) {
			return
		}
	}
}

// handle processes one frame from p and reports whether to keep reading.
func (s *Server) handle(p *peer, f frame.Frame) bool {
	s.mu.Lock()
	partner := p.partner
	s.mu.Unlock()
	if partner != nil {
		switch f.Command {
		case frame.CommandKeepalive:
			return true
		case frame.CommandDisconnect:
			return false
		}
		if err := partner.send(f.Command, f.Payload); err != nil {
			s.log.Debugf("client %d: forward: %v", p.id, err)
			return false
		}
		return true
	}

	switch f.Command {
	case frame.CommandHost:
		s.mu.Lock()
		p.hosting = true
		s.mu.Unlock()
		s.log.Infof("client %d is hosting", p.id)
	case frame.CommandList:
		s.mu.Lock()
		hosts := s.openHostsLocked()
		s.mu.Unlock()
		_ = p.send(frame.CommandData, frame.Int32(int32(len(hosts))))
		for _, h := range hosts {
			_ = p.send(frame.CommandData, frame.Int32(h.id))
			_ = p.send(frame.CommandData, frame.CString(h.name))
		}
	case frame.CommandRequest:
		id, err := frame.ParseInt32(f.Payload)
		s.mu.Lock()
		host := s.peers[id]
		ok := err == nil && host != nil && host != p && host.hosting && host.pending == nil && host.partner == nil
		if ok {
			host.pending = p
			p.waiting = host
		}
		s.mu.Unlock()
		if !ok {
			_ = p.send(frame.CommandUnavailable, nil)
			return true
		}
		_ = host.send(frame.CommandData, frame.CString(p.name))
	case frame.CommandAccept, frame.CommandDecline:
		s.mu.Lock()
		guest := p.pending
		p.pending = nil
		if guest != nil {
			guest.waiting = nil
			if f.Command == frame.CommandAccept {
				p.hosting = false
				p.partner = guest
				guest.partner = p
			}
		}
		s.mu.Unlock()
		if guest == nil {
			if f.Command == frame.CommandAccept {
				// The guest left before the answer.
				_ = p.send(frame.CommandDisconnect, nil)
			}
			return true
		}
		_ = guest.send(f.Command, nil)
		s.log.Infof("client %d answered %v to client %d", p.id, f.Command, guest.id)
	case frame.CommandKeepalive:
	case frame.CommandDisconnect:
		return false
	default:
		s.log.Warningf("client %d: unexpected %v", p.id, f.Command)
	}
	return true
}

// leave unregisters p and tells whoever depends on it.
func (s *Server) leave(p *peer) {
	s.mu.Lock()
	delete(s.peers, p.id)
	partner, pending, waiting := p.partner, p.pending, p.waiting
	if partner != nil {
		partner.partner = nil
	}
	if pending != nil {
		pending.waiting = nil
	}
	if waiting != nil && waiting.pending == p {
		waiting.pending = nil
	}
	s.mu.Unlock()

	if partner != nil {
		_ = partner.send(frame.CommandDisconnect, nil)
	}
	if pending != nil {
		_ = pending.send(frame.CommandUnavailable, nil)
	}
	s.log.Infof("client %d left", p.id)
}

func (s *Server) openHostsLocked() []*peer {
	var hosts []*peer
	for id := int32(1); id <= s.nextID; id++ {
		if h := s.peers[id]; h != nil && h.hosting && h.pending == nil && h.partner == nil {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
