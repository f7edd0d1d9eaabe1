package e2ee

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	return b
}

func TestBytesToKeyMatchesOpenSSL(t *testing.T) {
	// openssl enc -aes-256-cbc -md sha256 -S 5361666543686174 -k secret -P
	key, iv := BytesToKey([]byte("secret"), []byte(KDFSalt), 1, KeySize, IVSize)
	if !bytes.Equal(key, mustHex(t, "e18c1fc0f33b271bcee9713c8f89169f785a7bd83de238b161d417b35aa0ccbe")) {
		t.Fatalf("key mismatch: %x", key)
	}
	if !bytes.Equal(iv, mustHex(t, "12beed286adfd29aa131613a402be3d9")) {
		t.Fatalf("iv mismatch: %x", iv)
	}
}

func TestBytesToKeyRounds(t *testing.T) {
	key, iv := BytesToKey([]byte("secret"), []byte(KDFSalt), KDFRounds, KeySize, IVSize)
	if !bytes.Equal(key, mustHex(t, "1390bd8b5dbdded8e961b7b435e9dbda59628b8c71212ad1424b25bfed169545")) {
		t.Fatalf("key mismatch: %x", key)
	}
	if !bytes.Equal(iv, mustHex(t, "521f1a6c67cecda54047c304bad34e41")) {
		t.Fatalf("iv mismatch: %x", iv)
	}
}

func TestDeriveKeysPadsSecret(t *testing.T) {
	keys, err := DeriveKeys([]byte{1, 2, 3}, 64)
	if err != nil {
		t.Fatalf("DeriveKeys failed: %v", err)
	}
	if !bytes.Equal(keys.Key[:], mustHex(t, "a7332343ebf5d7467065e04d289581b386bafc2baaddec3f103b5a8aa9dd7801")) {
		t.Fatalf("key mismatch: %x", keys.Key)
	}
	if !bytes.Equal(keys.IV[:], mustHex(t, "beb2ca81be7827da8431d47ac038ef2f")) {
		t.Fatalf("iv mismatch: %x", keys.IV)
	}
}

func TestKeyMaterialRejectsBadSecrets(t *testing.T) {
	if _, err := KeyMaterial(nil, 64); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
	if _, err := KeyMaterial(make([]byte, 65), 64); err == nil {
		t.Fatalf("expected oversized secret to fail")
	}
}
