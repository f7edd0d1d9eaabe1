package scerrors

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net"

	"github.com/floegence/safechat/crypto/e2ee"
	"github.com/floegence/safechat/framing/frame"
)

// Classify maps a session-layer error to a stable Code.
func Classify(err error) Code {
	switch {
	case err == nil:
		return ""
	case CodeOf(err) != "":
		return CodeOf(err)
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, frame.ErrOversized),
		errors.Is(err, frame.ErrShortPayload),
		errors.Is(err, e2ee.ErrInvalidModulus),
		errors.Is(err, e2ee.ErrInvalidPublicKey),
		errors.Is(err, e2ee.ErrUnexpectedFrame),
		errors.Is(err, e2ee.ErrInvalidSecret),
		errors.Is(err, e2ee.ErrInvalidCiphertext),
		errors.Is(err, e2ee.ErrBadPadding),
		errors.Is(err, e2ee.ErrRecordTooLarge):
		return CodeProtocolViolation
	case errors.Is(err, frame.ErrConnectionDropped),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed):
		return CodeConnectionDropped
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return CodeLocalIO
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return CodeConnectionDropped
	}
	return CodeProtocolViolation
}

// WrapClassified wraps err at stage with the code Classify assigns it.
func WrapClassified(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != "" {
		return err
	}
	return Wrap(stage, Classify(err), err)
}

// ClassifyConnectCode maps a dial error to a stable Code.
func ClassifyConnectCode(err error) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeConnect
	}
}
