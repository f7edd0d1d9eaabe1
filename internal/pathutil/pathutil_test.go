package pathutil

import "testing"

func TestTrim(t *testing.T) {
	cases := map[string]string{
		"":                      "",
		"   ":                   "",
		"/tmp/a.txt":            "/tmp/a.txt",
		"  '/tmp/my file'  ":    "/tmp/my file",
		`"/tmp/x y.bin"`:        "/tmp/x y.bin",
		`/tmp/my\ file\(1\).gz`: "/tmp/my file(1).gz",
		"hello there":           "hello there",
	}
	for in, want := range cases {
		if got := Trim(in); got != want {
			t.Fatalf("Trim(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsFileOffer(t *testing.T) {
	if !IsFileOffer(Trim(" '/etc/hosts' ")) {
		t.Fatalf("expected quoted absolute path to be a file offer")
	}
	if IsFileOffer("hi /etc/hosts") {
		t.Fatalf("chat text must not be a file offer")
	}
}
