package e2ee

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/floegence/safechat/framing/frame"
)

// CipherBlockSize is the AES block length; padding grows a payload by at most this much.
const CipherBlockSize = aes.BlockSize

var (
	// ErrRecordTooLarge signals plaintext whose padded ciphertext would not fit in a frame.
	ErrRecordTooLarge = errors.New("record too large")
	// ErrInvalidCiphertext signals a ciphertext that is empty or not block aligned.
	ErrInvalidCiphertext = errors.New("invalid ciphertext length")
	// ErrBadPadding signals a ciphertext that decrypted to invalid PKCS#7 padding.
	ErrBadPadding = errors.New("bad padding")
)

// MaxPlaintext returns the largest plaintext whose ciphertext still fits in maxBlock bytes.
func MaxPlaintext(maxBlock int) int {
	if maxBlock <= CipherBlockSize {
		return 0
	}
	return maxBlock - CipherBlockSize
}

// MaxChunk is the largest plaintext a caller may offer for one frame.
var MaxChunk = MaxPlaintext(frame.MaxBlockSize)

// CiphertextLen returns the padded length for n plaintext bytes.
func CiphertextLen(n int) int {
	return (n/CipherBlockSize + 1) * CipherBlockSize
}

// Channel encrypts outbound and decrypts inbound payloads with AES-256-CBC.
//
// The CBC chaining value carries over from one payload to the next in each
// direction, so payloads must be sealed and opened strictly in wire order.
// Seal and Open each own one direction; a Channel may be used by one sender and
// one receiver concurrently, but not by two senders or two receivers.
type Channel struct {
	enc cipher.BlockMode
	dec cipher.BlockMode
}

// NewChannel builds both chains from the derived keys.
func NewChannel(keys Keys) (*Channel, error) {
	b, err := aes.NewCipher(keys.Key[:])
	if err != nil {
		return nil, err
	}
	return &Channel{
		enc: cipher.NewCBCEncrypter(b, keys.IV[:]),
		dec: cipher.NewCBCDecrypter(b, keys.IV[:]),
	}, nil
}

// Seal pads and encrypts plaintext.
func (c *Channel) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxChunk {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(plaintext))
	}
	n := CiphertextLen(len(plaintext))
	pad := byte(n - len(plaintext))
	out := make([]byte, n)
	copy(out, plaintext)
	for i := len(plaintext); i < n; i++ {
		out[i] = pad
	}
	c.enc.CryptBlocks(out, out)
	return out, nil
}

// Open decrypts ciphertext and strips its padding.
func (c *Channel) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%CipherBlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCiphertext, len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	c.dec.CryptBlocks(out, ciphertext)
	pad := int(out[len(out)-1])
	if pad == 0 || pad > CipherBlockSize || pad > len(out) {
		return nil, ErrBadPadding
	}
	if !bytes.Equal(out[len(out)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return nil, ErrBadPadding
	}
	return out[:len(out)-pad], nil
}
