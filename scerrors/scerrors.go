// Package scerrors defines the stable error taxonomy shared by the client, the CLI, and tests.
package scerrors

import (
	"errors"
	"fmt"
)

// Stage identifies which step of the session failed.
type Stage string

const (
	StageConfig    Stage = "config"
	StageConnect   Stage = "connect"
	StageRelay     Stage = "relay"
	StageNetwork   Stage = "network"
	StageMenu      Stage = "menu"
	StageHandshake Stage = "handshake"
	StageShell     Stage = "shell"
	StageTransfer  Stage = "transfer"
	StageKeepalive Stage = "keepalive"
)

// Code is a stable, programmatic error identifier.
type Code string

const (
	CodeConfig              Code = "config"
	CodeConnect             Code = "connect"
	CodeIncompatibleVersion Code = "incompatible_version"
	CodeServerFull          Code = "server_full"
	CodeProtocolViolation   Code = "protocol_violation"
	CodeConnectionDropped   Code = "connection_dropped"
	CodeLocalIO             Code = "local_io"
	CodeUserDeclined        Code = "user_declined"
	CodeDisconnected        Code = "disconnected"
	CodeTimeout             Code = "timeout"
	CodeCanceled            Code = "canceled"
)

// Error is a structured error carrying the failing stage and a stable code.
type Error struct {
	Stage Stage
	Code  Code
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Stage, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches stage and code to err. A nil err stays nil.
func Wrap(stage Stage, code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Code: code, Err: err}
}

// CodeOf returns the outermost Code in err's chain, or "" when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsGraceful reports whether err marks an orderly end of the session
// (local or peer disconnect).
func IsGraceful(err error) bool {
	return CodeOf(err) == CodeDisconnected
}

// IsFatal reports whether err must end the session.
//
// Local I/O failures and declines are recoverable; every other error,
// including unclassified ones, is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case CodeLocalIO, CodeUserDeclined, CodeDisconnected:
		return false
	default:
		return true
	}
}

// Message renders err the way the terminal reports failures: the innermost
// cause without the stage/code decoration.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for {
		e, ok := err.(*Error)
		if !ok || e == nil || e.Err == nil {
			return err.Error()
		}
		err = e.Err
	}
}
