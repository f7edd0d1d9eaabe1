package e2ee

import (
	"crypto/sha256"
	"errors"
)

// ErrInvalidSecret signals an empty shared secret or one larger than the key material buffer.
var ErrInvalidSecret = errors.New("invalid shared secret")

// Keys is the symmetric material both peers derive from the shared secret.
type Keys struct {
	Key [KeySize]byte // AES-256 key.
	IV  [IVSize]byte  // Initial CBC chaining value.
}

// KeyMaterial lays out the shared secret the way the key derivation consumes it:
// a zeroed buffer of modulusBits bytes with the unpadded secret at its start.
func KeyMaterial(secret []byte, modulusBits int) ([]byte, error) {
	if len(secret) == 0 || len(secret) > modulusBits {
		return nil, ErrInvalidSecret
	}
	out := make([]byte, modulusBits)
	copy(out, secret)
	return out, nil
}

// DeriveKeys expands the shared secret into the session key and IV.
func DeriveKeys(secret []byte, modulusBits int) (Keys, error) {
	material, err := KeyMaterial(secret, modulusBits)
	if err != nil {
		return Keys{}, err
	}
	key, iv := BytesToKey(material, []byte(KDFSalt), KDFRounds, KeySize, IVSize)
	var out Keys
	copy(out.Key[:], key)
	copy(out.IV[:], iv)
	return out, nil
}

// BytesToKey implements OpenSSL's EVP_BytesToKey with SHA-256:
//
//	D_0 = ""
//	D_i = H^rounds(D_{i-1} || password || salt)
//
// and returns the first keyLen bytes of D_1 || D_2 || ... as the key and the next
// ivLen bytes as the IV.
func BytesToKey(password, salt []byte, rounds, keyLen, ivLen int) (key, iv []byte) {
	if rounds < 1 {
		rounds = 1
	}
	need := keyLen + ivLen
	out := make([]byte, 0, need+sha256.Size)
	var prev []byte
	for len(out) < need {
		h := sha256.New()
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		d := h.Sum(nil)
		for i := 1; i < rounds; i++ {
			sum := sha256.Sum256(d)
			d = sum[:]
		}
		out = append(out, d...)
		prev = d
	}
	return out[:keyLen], out[keyLen:need]
}
