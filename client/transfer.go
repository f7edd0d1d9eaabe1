package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/floegence/safechat/crypto/e2ee"
	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/internal/units"
	"github.com/floegence/safechat/observability"
	"github.com/floegence/safechat/scerrors"
)

// Answer codes for a file offer, sent as an int32 Data payload.
const (
	answerAccept  int32 = 0
	answerDecline int32 = 1
)

// sendFile offers the file at path to the peer and streams it on acceptance.
func (s *Session) sendFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return wrapErr(StageTransfer, CodeLocalIO, fmt.Errorf("can't read file: %w", err))
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return wrapErr(StageTransfer, CodeLocalIO, fmt.Errorf("can't read file: %w", err))
	}
	if !st.Mode().IsRegular() {
		return wrapErr(StageTransfer, CodeLocalIO, fmt.Errorf("can't read file: %s: %w", path, ErrNotRegularFile))
	}
	name := filepath.Base(path)
	size := st.Size()

	if err := s.send(frame.CommandData, frame.CString("/"+name)); err != nil {
		return scerrors.WrapClassified(StageTransfer, err)
	}
	if err := s.send(frame.CommandData, frame.Int64(size)); err != nil {
		return scerrors.WrapClassified(StageTransfer, err)
	}
	s.printf("Waiting for %s to accept the file transfer...", s.peerName)
	reply, err := s.recv(ctx)
	if err != nil {
		return scerrors.WrapClassified(StageTransfer, err)
	}
	answer, err := frame.ParseInt32(reply.Payload)
	if err != nil {
		return wrapErr(StageTransfer, CodeProtocolViolation, err)
	}
	if answer != answerAccept {
		s.printf("\n%s declined the file transfer.\n", s.peerName)
		s.opts.observer.Transfer(observability.TransferSend, observability.TransferResultDeclined, 0)
		s.log.Infof("session %s: %q declined %s", s.id, s.peerName, name)
		return nil
	}

	s.printf("\nSending %s...", name)
	p := newProgress("Sending", name, size, s.opts.now)
	buf := make([]byte, e2ee.MaxChunk)
	var sent int64
	for sent < size {
		n := min(size-sent, int64(len(buf)))
		if _, err := io.ReadFull(f, buf[:n]); err != nil {
			// The peer is owed size bytes; the stream cannot be resynchronised.
			s.opts.observer.Transfer(observability.TransferSend, observability.TransferResultFail, sent)
			return wrapErr(StageTransfer, CodeProtocolViolation, fmt.Errorf("%w: %v", ErrTruncatedFile, err))
		}
		if err := s.send(frame.CommandData, buf[:n]); err != nil {
			s.opts.observer.Transfer(observability.TransferSend, observability.TransferResultFail, sent)
			return scerrors.WrapClassified(StageTransfer, err)
		}
		sent += n
		s.printf("%s", p.line(sent))
	}
	s.printf("\n")
	s.opts.observer.Transfer(observability.TransferSend, observability.TransferResultOK, sent)
	s.log.Noticef("session %s: sent %s (%d bytes) in %v", s.id, name, sent, p.elapsed().Round(time.Millisecond))
	return nil
}

// receiveFile handles a peer's offer of name: it reads the announced size,
// asks the user, and writes the accepted file to the download directory.
func (s *Session) receiveFile(ctx context.Context, name string) error {
	f, err := s.recv(ctx)
	if err != nil {
		return scerrors.WrapClassified(StageTransfer, err)
	}
	size, err := frame.ParseInt64(f.Payload)
	if err != nil {
		return wrapErr(StageTransfer, CodeProtocolViolation, err)
	}
	if size < 0 {
		return wrapErr(StageTransfer, CodeProtocolViolation, ErrNegativeFileSize)
	}

	s.printf("\n")
	answer, err := s.prompt(ctx, fmt.Sprintf("Accept transfer of %s (%s)? (y/n) ", name, units.FormatSize(size)), yesNo)
	if err != nil {
		return err
	}
	if answer == "n" {
		if err := s.send(frame.CommandData, frame.Int32(answerDecline)); err != nil {
			return scerrors.WrapClassified(StageTransfer, err)
		}
		s.opts.observer.Transfer(observability.TransferReceive, observability.TransferResultDeclined, 0)
		return nil
	}

	dst := filepath.Join(s.cfg.DownloadDir, name)
	out, err := os.Create(dst)
	if err != nil {
		if serr := s.send(frame.CommandData, frame.Int32(answerDecline)); serr != nil {
			return scerrors.WrapClassified(StageTransfer, serr)
		}
		s.opts.observer.Transfer(observability.TransferReceive, observability.TransferResultLocalIO, 0)
		return wrapErr(StageTransfer, CodeLocalIO, fmt.Errorf("can't write file: %w", err))
	}
	if err := s.send(frame.CommandData, frame.Int32(answerAccept)); err != nil {
		_ = out.Close()
		return scerrors.WrapClassified(StageTransfer, err)
	}

	s.printf("%sReceiving %s...", clearLine, name)
	p := newProgress("Receiving", name, size, s.opts.now)
	var got int64
	var writeErr error
	for got < size {
		chunk, err := s.recv(ctx)
		if err != nil {
			_ = out.Close()
			s.opts.observer.Transfer(observability.TransferReceive, observability.TransferResultFail, got)
			return scerrors.WrapClassified(StageTransfer, err)
		}
		// Keep draining after a write failure so the stream stays in step.
		if writeErr == nil {
			_, writeErr = out.Write(chunk.Payload)
		}
		got += int64(len(chunk.Payload))
		s.printf("%s", p.line(got))
	}
	s.printf("\n")
	if err := out.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		s.opts.observer.Transfer(observability.TransferReceive, observability.TransferResultLocalIO, got)
		return wrapErr(StageTransfer, CodeLocalIO, fmt.Errorf("can't write file: %w", writeErr))
	}
	s.opts.observer.Transfer(observability.TransferReceive, observability.TransferResultOK, got)
	s.log.Noticef("session %s: received %s (%d bytes) into %s", s.id, name, got, dst)
	return nil
}

var clearLine = "\r" + strings.Repeat(" ", 80) + "\r"

// progress renders the transfer status line. Rate and time remaining appear
// once at least one second has elapsed.
type progress struct {
	verb  string
	name  string
	total int64
	start time.Time
	now   func() time.Time
}

func newProgress(verb, name string, total int64, now func() time.Time) *progress {
	return &progress{verb: verb, name: name, total: total, start: now(), now: now}
}

func (p *progress) elapsed() time.Duration {
	return p.now().Sub(p.start)
}

func (p *progress) line(done int64) string {
	pct := 100.0
	if p.total > 0 {
		pct = float64(done) / float64(p.total) * 100
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %s... %.0f%%", clearLine, p.verb, p.name, pct)
	if secs := int64(p.elapsed() / time.Second); secs > 0 {
		if rate := done / secs; rate > 0 {
			fmt.Fprintf(&b, " (%s at %s/s)", units.FormatTime((p.total-done)/rate), units.FormatSize(rate))
		}
	}
	return b.String()
}
