package client

import (
	"context"
	"time"

	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/scerrors"
)

// keepaliveDue reports whether the watchdog must probe: nothing has been sent
// for longer than one period.
func keepaliveDue(now, lastSend time.Time, period time.Duration) bool {
	return now.Sub(lastSend) > period
}

// keepalive wakes every period and probes the relay when the session has been
// silent. It never touches the mailboxes.
func (s *Session) keepalive(ctx context.Context, period time.Duration) error {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if _, err := s.probe(period); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// probe sends one empty Keepalive frame if one is due and reports whether it did.
func (s *Session) probe(period time.Duration) (bool, error) {
	if !keepaliveDue(s.opts.now(), s.lastSendTime(), period) {
		return false, nil
	}
	if err := s.send(frame.CommandKeepalive, nil); err != nil {
		return false, scerrors.WrapClassified(StageKeepalive, err)
	}
	s.opts.observer.Keepalive()
	s.log.Debugf("session %s: keepalive", s.id)
	return true, nil
}
