package client

import "errors"

var (
	ErrIncompatibleVersion = errors.New("incompatible server version")
	ErrServerFull          = errors.New("server is full")
	ErrPeerDisconnected    = errors.New("peer disconnected")
	ErrLocalDisconnect     = errors.New("local disconnect")
	ErrMissingName         = errors.New("name required")
	ErrMissingDownloadDir  = errors.New("file transfer path required")
	ErrNegativeHostCount   = errors.New("negative host count")
	ErrNegativeFileSize    = errors.New("negative file size")
	ErrUnexpectedCommand   = errors.New("unexpected command")
	ErrTruncatedFile       = errors.New("file ended before its announced size")
	ErrNotRegularFile      = errors.New("not a regular file")
	ErrLineTooLong         = errors.New("input line too long")
)
