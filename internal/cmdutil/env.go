// Package cmdutil holds helpers shared by command line entrypoints.
package cmdutil

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix namespaces the environment variables safechat reads.
const EnvPrefix = "SAFECHAT_"

// EnvString returns the trimmed value of EnvPrefix+key, or fallback when it
// is unset or blank.
func EnvString(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
		return v
	}
	return fallback
}

// EnvInt parses EnvPrefix+key as an integer; unset or blank yields fallback.
func EnvInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &UsageError{Err: err, Msg: "invalid " + EnvPrefix + key}
	}
	return v, nil
}
