package client

import "github.com/floegence/safechat/scerrors"

type Error = scerrors.Error

type Stage = scerrors.Stage

const (
	StageConfig    = scerrors.StageConfig
	StageConnect   = scerrors.StageConnect
	StageRelay     = scerrors.StageRelay
	StageNetwork   = scerrors.StageNetwork
	StageMenu      = scerrors.StageMenu
	StageHandshake = scerrors.StageHandshake
	StageShell     = scerrors.StageShell
	StageTransfer  = scerrors.StageTransfer
	StageKeepalive = scerrors.StageKeepalive
)

type Code = scerrors.Code

const (
	CodeConfig              = scerrors.CodeConfig
	CodeConnect             = scerrors.CodeConnect
	CodeIncompatibleVersion = scerrors.CodeIncompatibleVersion
	CodeServerFull          = scerrors.CodeServerFull
	CodeProtocolViolation   = scerrors.CodeProtocolViolation
	CodeConnectionDropped   = scerrors.CodeConnectionDropped
	CodeLocalIO             = scerrors.CodeLocalIO
	CodeUserDeclined        = scerrors.CodeUserDeclined
	CodeDisconnected        = scerrors.CodeDisconnected
	CodeTimeout             = scerrors.CodeTimeout
	CodeCanceled            = scerrors.CodeCanceled
)

func wrapErr(stage Stage, code Code, err error) error {
	return scerrors.Wrap(stage, code, err)
}

// Role is the part a session plays once it leaves the main menu.
type Role int

const (
	RoleUndecided Role = iota
	RoleHost
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	default:
		return "undecided"
	}
}
