package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/floegence/safechat/crypto/e2ee"
	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/observability"
	"github.com/floegence/safechat/scerrors"
)

const menuText = "\nMain Menu\n\n    1) Start new host\n    2) Connect to host\n\nChoice: "

// hostEntry is one line of the relay's host listing.
type hostEntry struct {
	id   int32
	name string
}

// greetRelay checks the relay's protocol version and capacity, then registers
// the display name.
func (s *Session) greetRelay(ctx context.Context) error {
	f, err := s.recv(ctx)
	if err != nil {
		return scerrors.WrapClassified(StageRelay, err)
	}
	v, err := frame.ParseInt32(f.Payload)
	if err != nil {
		return wrapErr(StageRelay, CodeProtocolViolation, err)
	}
	if v != ProtocolVersion {
		return wrapErr(StageRelay, CodeIncompatibleVersion,
			fmt.Errorf("%w: relay speaks %d, client speaks %d", ErrIncompatibleVersion, v, ProtocolVersion))
	}

	f, err = s.recv(ctx)
	if err != nil {
		return scerrors.WrapClassified(StageRelay, err)
	}
	full, err := frame.ParseBool(f.Payload)
	if err != nil {
		return wrapErr(StageRelay, CodeProtocolViolation, err)
	}
	if full {
		return wrapErr(StageRelay, CodeServerFull, ErrServerFull)
	}

	if err := s.send(frame.CommandName, frame.CString(s.cfg.Name)); err != nil {
		return scerrors.WrapClassified(StageRelay, err)
	}
	s.log.Noticef("session %s: registered with relay as %q", s.id, s.cfg.Name)
	return nil
}

// host offers this client as a host and waits for guests until one is accepted.
func (s *Session) host(ctx context.Context) error {
	if err := s.send(frame.CommandHost, nil); err != nil {
		return scerrors.WrapClassified(StageMenu, err)
	}
	for {
		s.printf("\nWaiting for client to connect...")
		f, err := s.recv(ctx)
		if err != nil {
			return scerrors.WrapClassified(StageMenu, err)
		}
		s.peerName = frame.ParseCString(f.Payload)
		s.printf("\n")
		answer, err := s.prompt(ctx, fmt.Sprintf("Accept connection from %s? (y/n) ", s.peerName), yesNo)
		if err != nil {
			return err
		}
		if answer == "n" {
			if err := s.send(frame.CommandDecline, nil); err != nil {
				return scerrors.WrapClassified(StageMenu, err)
			}
			s.log.Infof("session %s: declined connection from %q", s.id, s.peerName)
			continue
		}
		if err := s.send(frame.CommandAccept, nil); err != nil {
			return scerrors.WrapClassified(StageMenu, err)
		}
		if err := s.handshake(ctx, RoleHost); err != nil {
			return err
		}
		return s.shell(ctx)
	}
}

// browse lists the relay's hosts and requests one. Declines and unavailable
// hosts return to the main menu with a nil error.
func (s *Session) browse(ctx context.Context) error {
	if err := s.send(frame.CommandList, nil); err != nil {
		return scerrors.WrapClassified(StageMenu, err)
	}
	hosts, err := s.recvHostList(ctx)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		s.printf("\nNo available hosts.\n")
		return nil
	}

	var listing strings.Builder
	listing.WriteString("\nHosts:\n\n")
	for i, h := range hosts {
		fmt.Fprintf(&listing, "    %d) %s\n", i+1, h.name)
	}
	listing.WriteString("\nChoice: ")
	answer, err := s.prompt(ctx, listing.String(), func(a string) bool {
		n, err := strconv.Atoi(a)
		return err == nil && n >= 1 && n <= len(hosts)
	})
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(answer)
	chosen := hosts[n-1]
	s.peerName = chosen.name

	if err := s.send(frame.CommandRequest, frame.Int32(chosen.id)); err != nil {
		return scerrors.WrapClassified(StageMenu, err)
	}
	s.printf("\nWaiting for %s to accept your connection...", s.peerName)
	f, err := s.recv(ctx)
	if err != nil {
		return scerrors.WrapClassified(StageMenu, err)
	}
	switch f.Command {
	case frame.CommandAccept:
		s.printf("\n")
		if err := s.handshake(ctx, RoleGuest); err != nil {
			return err
		}
		return s.shell(ctx)
	case frame.CommandDecline:
		s.printf("\n%s declined your connection.\n", s.peerName)
		s.log.Infof("session %s: %q declined", s.id, s.peerName)
		return nil
	case frame.CommandUnavailable:
		s.printf("\n%s is unavailable.\n", s.peerName)
		s.log.Infof("session %s: %q unavailable", s.id, s.peerName)
		return nil
	default:
		return wrapErr(StageMenu, CodeProtocolViolation, fmt.Errorf("%w: %v after request", ErrUnexpectedCommand, f.Command))
	}
}

// recvHostList reads a count frame followed by an (id, name) frame pair per host.
func (s *Session) recvHostList(ctx context.Context) ([]hostEntry, error) {
	f, err := s.recv(ctx)
	if err != nil {
		return nil, scerrors.WrapClassified(StageMenu, err)
	}
	count, err := frame.ParseInt32(f.Payload)
	if err != nil {
		return nil, wrapErr(StageMenu, CodeProtocolViolation, err)
	}
	if count < 0 {
		return nil, wrapErr(StageMenu, CodeProtocolViolation, ErrNegativeHostCount)
	}
	hosts := make([]hostEntry, 0, min(count, 64))
	for i := int32(0); i < count; i++ {
		idFrame, err := s.recv(ctx)
		if err != nil {
			return nil, scerrors.WrapClassified(StageMenu, err)
		}
		id, err := frame.ParseInt32(idFrame.Payload)
		if err != nil {
			return nil, wrapErr(StageMenu, CodeProtocolViolation, err)
		}
		nameFrame, err := s.recv(ctx)
		if err != nil {
			return nil, scerrors.WrapClassified(StageMenu, err)
		}
		hosts = append(hosts, hostEntry{id: id, name: frame.ParseCString(nameFrame.Payload)})
	}
	return hosts, nil
}

// handshake runs the key exchange in role and switches the session to the
// encrypted channel.
func (s *Session) handshake(ctx context.Context, role Role) error {
	s.role = role
	obsRole := s.role.handshakeRole()
	hopts := e2ee.HandshakeOptions{ModulusBits: s.opts.modulusBits, Rand: s.opts.rand}
	t := frameTransport{s: s}

	start := time.Now()
	var res *e2ee.Result
	var err error
	if s.role == RoleHost {
		res, err = e2ee.HostHandshake(ctx, t, hopts)
	} else {
		res, err = e2ee.GuestHandshake(ctx, t, hopts)
	}
	d := time.Since(start)
	if err != nil {
		s.opts.observer.Handshake(obsRole, observability.HandshakeResultFail, d)
		s.log.Errorf("session %s: key exchange as %s failed: %v", s.id, s.role, err)
		return scerrors.WrapClassified(StageHandshake, err)
	}
	s.setChannel(res.Channel)
	s.opts.observer.Handshake(obsRole, observability.HandshakeResultOK, d)
	s.log.Noticef("session %s: key exchange as %s with %q done in %v", s.id, s.role, s.peerName, d.Round(time.Millisecond))
	return nil
}

func (r Role) handshakeRole() observability.HandshakeRole {
	if r == RoleHost {
		return observability.HandshakeRoleHost
	}
	return observability.HandshakeRoleGuest
}

// frameTransport runs the key exchange over the session's plaintext frames.
type frameTransport struct {
	s *Session
}

func (t frameTransport) SendFrame(cmd frame.Command, payload []byte) error {
	return t.s.send(cmd, payload)
}

func (t frameTransport) RecvFrame(ctx context.Context) (frame.Frame, error) {
	return t.s.recv(ctx)
}
