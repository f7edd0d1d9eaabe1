package e2ee

import "testing"

func FuzzOpen(f *testing.F) {
	f.Add([]byte{})
	f.Add(make([]byte, 16))
	f.Add(make([]byte, 4096))
	f.Fuzz(func(t *testing.T, ct []byte) {
		ch, err := NewChannel(testKeys())
		if err != nil {
			t.Fatalf("NewChannel failed: %v", err)
		}
		plain, err := ch.Open(ct)
		if err == nil && len(plain) >= len(ct) {
			t.Fatalf("plaintext %d not shorter than ciphertext %d", len(plain), len(ct))
		}
	})
}
