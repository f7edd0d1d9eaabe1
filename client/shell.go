package client

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/floegence/safechat/crypto/e2ee"
	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/internal/mailbox"
	"github.com/floegence/safechat/internal/pathutil"
	"github.com/floegence/safechat/scerrors"
)

const shellBanner = "\nCommands:\n\n    <path> - Transfer file\n    <entr> - Disconnect\n\n"

type inboundKind int

const (
	inboundChat inboundKind = iota
	inboundOffer
	inboundIgnored
)

// inbound is a peer frame classified once, at the point of receipt.
//
// On the wire a Data payload starting with '/' is a file offer and anything
// else is chat text; no other tag exists.
type inbound struct {
	kind     inboundKind
	text     string        // inboundChat
	fileName string        // inboundOffer; base name only
	command  frame.Command // inboundIgnored
}

func classifyInbound(f frame.Frame) inbound {
	if f.Command != frame.CommandData {
		return inbound{kind: inboundIgnored, command: f.Command}
	}
	text := frame.ParseCString(f.Payload)
	if strings.HasPrefix(text, "/") {
		return inbound{kind: inboundOffer, fileName: filepath.Base(text[1:])}
	}
	return inbound{kind: inboundChat, text: text}
}

// shell is the encrypted steady state: it serves the network and the terminal
// until the session ends. Recoverable failures are reported and the loop goes on.
func (s *Session) shell(ctx context.Context) error {
	s.printf(shellBanner)
	for {
		s.printf("%s: ", s.cfg.Name)
		p, err := mailbox.First(ctx, s.net, s.term)
		if err != nil {
			return err
		}
		if p.Primary {
			err = s.handleNetwork(ctx, p.A)
		} else {
			err = s.handleTerminal(ctx, p.B)
		}
		if err == nil {
			continue
		}
		// A disconnect that lands mid-prompt ends the session; it is not a failure.
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if scerrors.IsGraceful(err) || scerrors.IsFatal(err) {
			return err
		}
		s.log.Warningf("session %s (%s): %v", s.id, s.role, err)
		s.report(err)
	}
}

func (s *Session) handleNetwork(ctx context.Context, raw frame.Frame) error {
	f, err := s.open(raw)
	if err != nil {
		return err
	}
	in := classifyInbound(f)
	switch in.kind {
	case inboundOffer:
		return s.receiveFile(ctx, in.fileName)
	case inboundChat:
		s.printf("\r%s: %s\n", s.peerName, in.text)
	default:
		s.log.Warningf("session %s: ignoring %v frame in shell", s.id, in.command)
	}
	return nil
}

func (s *Session) handleTerminal(ctx context.Context, line string) error {
	if path := pathutil.Trim(line); pathutil.IsFileOffer(path) {
		return s.sendFile(ctx, path)
	}
	return s.sendChat(line)
}

// chatPayload encodes a line for one Data frame. A line that does not fit is
// cut to the frame's plaintext capacity and then carries no terminator.
func chatPayload(line string) []byte {
	p := frame.CString(line)
	if len(p) > e2ee.MaxChunk {
		p = p[:e2ee.MaxChunk]
	}
	return p
}

func (s *Session) sendChat(line string) error {
	if err := s.send(frame.CommandData, chatPayload(line)); err != nil {
		return scerrors.WrapClassified(StageShell, err)
	}
	return nil
}
