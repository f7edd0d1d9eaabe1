package e2ee

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/floegence/safechat/framing/frame"
)

// ErrUnexpectedFrame signals a non-Data frame where handshake material was expected.
var ErrUnexpectedFrame = errors.New("unexpected handshake frame")

// HandshakeOptions configures either side of the key exchange.
type HandshakeOptions struct {
	ModulusBits int       // DH modulus length; both peers must use the same value.
	Rand        io.Reader // Entropy source; crypto/rand when nil.
}

func (o HandshakeOptions) withDefaults() HandshakeOptions {
	if o.ModulusBits <= 0 {
		o.ModulusBits = DefaultModulusBits
	}
	if o.Rand == nil {
		o.Rand = rand.Reader
	}
	return o
}

// Result is the outcome of a completed key exchange.
type Result struct {
	Secret  []byte   // Shared DH secret, unpadded big-endian.
	Keys    Keys     // Derived symmetric key material.
	Channel *Channel // Cipher channel seeded from Keys.
}

// HostHandshake runs the host side: generate the group, send p and the host public
// value, then read the guest public value.
func HostHandshake(ctx context.Context, t FrameTransport, opts HandshakeOptions) (*Result, error) {
	opts = opts.withDefaults()
	params, err := GenerateParams(opts.Rand, opts.ModulusBits)
	if err != nil {
		return nil, fmt.Errorf("generate dh params: %w", err)
	}
	if err := t.SendFrame(frame.CommandData, params.ModulusBytes()); err != nil {
		return nil, err
	}
	priv, err := params.GenerateKey(opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("generate dh key: %w", err)
	}
	if err := t.SendFrame(frame.CommandData, priv.PublicBytes()); err != nil {
		return nil, err
	}
	peerPub, err := recvData(ctx, t)
	if err != nil {
		return nil, err
	}
	return finish(priv, peerPub, opts.ModulusBits)
}

// GuestHandshake runs the guest side: read p, send the guest public value, then read
// the host public value.
func GuestHandshake(ctx context.Context, t FrameTransport, opts HandshakeOptions) (*Result, error) {
	opts = opts.withDefaults()
	modulus, err := recvData(ctx, t)
	if err != nil {
		return nil, err
	}
	params, err := ParamsFromModulus(modulus, opts.ModulusBits)
	if err != nil {
		return nil, err
	}
	priv, err := params.GenerateKey(opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("generate dh key: %w", err)
	}
	if err := t.SendFrame(frame.CommandData, priv.PublicBytes()); err != nil {
		return nil, err
	}
	peerPub, err := recvData(ctx, t)
	if err != nil {
		return nil, err
	}
	return finish(priv, peerPub, opts.ModulusBits)
}

func recvData(ctx context.Context, t FrameTransport) ([]byte, error) {
	f, err := t.RecvFrame(ctx)
	if err != nil {
		return nil, err
	}
	if f.Command != frame.CommandData {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedFrame, f.Command)
	}
	return f.Payload, nil
}

func finish(priv *PrivateKey, peerPub []byte, modulusBits int) (*Result, error) {
	secret, err := priv.SharedSecret(peerPub)
	if err != nil {
		return nil, err
	}
	keys, err := DeriveKeys(secret, modulusBits)
	if err != nil {
		return nil, err
	}
	ch, err := NewChannel(keys)
	if err != nil {
		return nil, err
	}
	return &Result{Secret: secret, Keys: keys, Channel: ch}, nil
}
