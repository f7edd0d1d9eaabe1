// Package pathutil cleans up file paths typed or dropped into a terminal.
package pathutil

import "strings"

const trimSet = " '\""

// Trim strips surrounding spaces and quotes and removes shell backslash
// escapes, so `'/tmp/my file'` and `/tmp/my\ file` both become "/tmp/my file".
func Trim(path string) string {
	path = strings.Trim(path, trimSet)
	return strings.ReplaceAll(path, `\`, "")
}

// IsFileOffer reports whether a cleaned terminal line names a file to send.
func IsFileOffer(path string) bool {
	return strings.HasPrefix(path, "/")
}
