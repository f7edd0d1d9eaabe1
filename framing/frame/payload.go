package frame

import (
	"bytes"
	"errors"

	"github.com/floegence/safechat/internal/bin"
)

// ErrShortPayload indicates a scalar payload with fewer bytes than its type needs.
var ErrShortPayload = errors.New("short payload")

// CString encodes s NUL-terminated, the way peers and the relay exchange names and text.
func CString(s string) []byte {
	out := make([]byte, len(s)+1)
	copy(out, s)
	return out
}

// ParseCString returns the payload up to the first NUL (or all of it).
func ParseCString(p []byte) string {
	if i := bytes.IndexByte(p, 0); i >= 0 {
		return string(p[:i])
	}
	return string(p)
}

func Int32(v int32) []byte {
	out := make([]byte, 4)
	bin.PutU32LE(out, uint32(v))
	return out
}

func ParseInt32(p []byte) (int32, error) {
	if len(p) < 4 {
		return 0, ErrShortPayload
	}
	return int32(bin.U32LE(p)), nil
}

func Int64(v int64) []byte {
	out := make([]byte, 8)
	bin.PutU64LE(out, uint64(v))
	return out
}

func ParseInt64(p []byte) (int64, error) {
	if len(p) < 8 {
		return 0, ErrShortPayload
	}
	return int64(bin.U64LE(p)), nil
}

// ParseBool reads a one-byte flag; any non-zero byte is true.
func ParseBool(p []byte) (bool, error) {
	if len(p) < 1 {
		return false, ErrShortPayload
	}
	return p[0] != 0, nil
}
