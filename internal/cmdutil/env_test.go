package cmdutil

import (
	"errors"
	"fmt"
	"testing"
)

func TestEnvString_TrimsAndFallsBack(t *testing.T) {
	t.Setenv("SAFECHAT_X", "  ok  ")
	if got := EnvString("X", "fallback"); got != "ok" {
		t.Fatalf("unexpected value: %q", got)
	}
	t.Setenv("SAFECHAT_X", "   ")
	if got := EnvString("X", "fallback"); got != "fallback" {
		t.Fatalf("unexpected fallback: %q", got)
	}
	t.Setenv("X", "unprefixed")
	if got := EnvString("X", "fallback"); got != "fallback" {
		t.Fatalf("unprefixed variable must be ignored: %q", got)
	}
}

func TestEnvInt_ParsesAndFallsBack(t *testing.T) {
	t.Setenv("SAFECHAT_N", "")
	got, err := EnvInt("N", 7)
	if err != nil || got != 7 {
		t.Fatalf("unexpected: got=%v err=%v", got, err)
	}
	t.Setenv("SAFECHAT_N", " 4000 ")
	got, err = EnvInt("N", 7)
	if err != nil || got != 4000 {
		t.Fatalf("unexpected: got=%v err=%v", got, err)
	}
	t.Setenv("SAFECHAT_N", "lots")
	_, err = EnvInt("N", 7)
	if !IsUsage(err) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestUsageError(t *testing.T) {
	if Usage(nil) != nil {
		t.Fatal("Usage(nil) must be nil")
	}
	base := errors.New("name required")
	err := fmt.Errorf("startup: %w", Usage(base))
	if !IsUsage(err) || !errors.Is(err, base) {
		t.Fatalf("wrapping lost: %v", err)
	}
	if got := (&UsageError{Msg: "bad flag"}).Error(); got != "bad flag" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := (&UsageError{Msg: "invalid SAFECHAT_PORT", Err: base}).Error(); got != "invalid SAFECHAT_PORT: name required" {
		t.Fatalf("unexpected message: %q", got)
	}
	if IsUsage(base) {
		t.Fatal("plain error reported as usage")
	}
}
