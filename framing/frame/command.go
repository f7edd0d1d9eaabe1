package frame

import "fmt"

// Command identifies the purpose of a frame. It is never encrypted, so the relay
// can route on it.
type Command uint32

const (
	CommandName Command = iota
	CommandHost
	CommandAccept
	CommandDecline
	CommandList
	CommandRequest
	CommandUnavailable
	CommandData
	CommandKeepalive
	CommandDisconnect
)

var commandNames = [...]string{
	CommandName:        "name",
	CommandHost:        "host",
	CommandAccept:      "accept",
	CommandDecline:     "decline",
	CommandList:        "list",
	CommandRequest:     "request",
	CommandUnavailable: "unavailable",
	CommandData:        "data",
	CommandKeepalive:   "keepalive",
	CommandDisconnect:  "disconnect",
}

// Valid reports whether c is part of the closed command set.
func (c Command) Valid() bool {
	return c <= CommandDisconnect
}

func (c Command) String() string {
	if !c.Valid() {
		return fmt.Sprintf("command(%d)", uint32(c))
	}
	return commandNames[c]
}
