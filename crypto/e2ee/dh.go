package e2ee

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	// ErrInvalidModulus signals a DH modulus that is malformed or of the wrong length.
	ErrInvalidModulus = errors.New("invalid dh modulus")
	// ErrInvalidPublicKey signals a peer public value outside (1, p-1).
	ErrInvalidPublicKey = errors.New("invalid dh public value")
	// ErrModulusTooSmall rejects parameter generation below a usable size.
	ErrModulusTooSmall = errors.New("dh modulus too small")
)

// MinModulusBits keeps tests fast while refusing toy parameters.
const MinModulusBits = 64

var (
	one  = big.NewInt(1)
	two  = big.NewInt(2)
	ten  = big.NewInt(10)
	gen5 = big.NewInt(Generator)
)

// Params holds the group shared by both peers.
type Params struct {
	P *big.Int // Safe prime modulus.
	G *big.Int // Generator (always 5).
}

// sieveLimit bounds the odd primes used to screen safe-prime candidates.
const sieveLimit = 1 << 14

// maxSieveStep bounds how far one random start is walked before a fresh one is drawn.
const maxSieveStep = 1 << 20

var smallPrimes = oddPrimesBelow(sieveLimit)

func oddPrimesBelow(n int) []uint64 {
	composite := make([]bool, n)
	var out []uint64
	for i := 3; i < n; i += 2 {
		if composite[i] {
			continue
		}
		out = append(out, uint64(i))
		for j := i * i; j < n; j += 2 * i {
			composite[j] = true
		}
	}
	return out
}

// GenerateParams creates a safe prime modulus of the given length suitable for g=5.
//
// p = 2q+1 with q prime and p mod 10 in {3, 7}, matching what OpenSSL requires
// of a modulus it generates for generator 5. Candidates walk upward from a
// random odd q and are sieved so that neither q nor 2q+1 has a small factor;
// only survivors reach the primality tests.
func GenerateParams(r io.Reader, bits int) (*Params, error) {
	if bits < MinModulusBits {
		return nil, ErrModulusTooSmall
	}
	if r == nil {
		r = rand.Reader
	}
	residues := make([]uint64, len(smallPrimes))
	m := new(big.Int)
	sp := new(big.Int)
	for {
		base, err := randomOdd(r, bits-1)
		if err != nil {
			return nil, err
		}
		for i, v := range smallPrimes {
			residues[i] = m.Mod(base, sp.SetUint64(v)).Uint64()
		}
		for step := uint64(0); step < maxSieveStep; step += 2 {
			if !survivesSieve(residues, step) {
				continue
			}
			q := new(big.Int).Add(base, new(big.Int).SetUint64(step))
			if q.BitLen() != bits-1 {
				break
			}
			p := new(big.Int).Lsh(q, 1)
			p.Add(p, one)
			if d := m.Mod(p, ten).Int64(); d != 3 && d != 7 {
				continue
			}
			if !fermatBase2(q) || !fermatBase2(p) {
				continue
			}
			if q.ProbablyPrime(20) && p.ProbablyPrime(20) {
				return &Params{P: p, G: new(big.Int).Set(gen5)}, nil
			}
		}
	}
}

// survivesSieve reports whether q = base+step and 2q+1 are both free of the
// small prime factors whose residues of base are given.
func survivesSieve(residues []uint64, step uint64) bool {
	for i, v := range smallPrimes {
		rem := (residues[i] + step) % v
		if rem == 0 || rem == (v-1)/2 {
			return false
		}
	}
	return true
}

// randomOdd returns a uniformly random odd integer of exactly bits bits.
func randomOdd(r io.Reader, bits int) (*big.Int, error) {
	b := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	top := uint(bits % 8)
	if top == 0 {
		top = 8
	}
	b[0] &= byte(1<<top - 1)
	b[0] |= 1 << (top - 1)
	b[len(b)-1] |= 1
	return new(big.Int).SetBytes(b), nil
}

func fermatBase2(n *big.Int) bool {
	e := new(big.Int).Sub(n, one)
	return new(big.Int).Exp(two, e, n).Cmp(one) == 0
}

// ParamsFromModulus rebuilds the group from the host's modulus bytes.
func ParamsFromModulus(b []byte, bits int) (*Params, error) {
	p := new(big.Int).SetBytes(b)
	if p.BitLen() != bits {
		return nil, fmt.Errorf("%w: got %d bits, want %d", ErrInvalidModulus, p.BitLen(), bits)
	}
	if p.Bit(0) == 0 {
		return nil, fmt.Errorf("%w: even modulus", ErrInvalidModulus)
	}
	return &Params{P: p, G: new(big.Int).Set(gen5)}, nil
}

// ModulusBytes returns p as unsigned big-endian bytes.
func (p *Params) ModulusBytes() []byte {
	return p.P.Bytes()
}

// PrivateKey is one side's ephemeral DH key pair.
type PrivateKey struct {
	params *Params
	x      *big.Int
	y      *big.Int
}

// GenerateKey picks a private exponent in [2, p-2] and computes g^x mod p.
func (p *Params) GenerateKey(r io.Reader) (*PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	// x = 2 + uniform[0, p-3)
	limit := new(big.Int).Sub(p.P, big.NewInt(3))
	if limit.Sign() <= 0 {
		return nil, ErrInvalidModulus
	}
	x, err := rand.Int(r, limit)
	if err != nil {
		return nil, err
	}
	x.Add(x, two)
	y := new(big.Int).Exp(p.G, x, p.P)
	return &PrivateKey{params: p, x: x, y: y}, nil
}

// PublicBytes returns the public value as unsigned big-endian bytes.
func (k *PrivateKey) PublicBytes() []byte {
	return k.y.Bytes()
}

// SharedSecret computes peer^x mod p after validating the peer value.
//
// The result is unpadded big-endian, as OpenSSL's DH_compute_key returns it.
func (k *PrivateKey) SharedSecret(peer []byte) ([]byte, error) {
	y := new(big.Int).SetBytes(peer)
	pMinus1 := new(big.Int).Sub(k.params.P, one)
	if y.Cmp(one) <= 0 || y.Cmp(pMinus1) >= 0 {
		return nil, ErrInvalidPublicKey
	}
	s := new(big.Int).Exp(y, k.x, k.params.P)
	return s.Bytes(), nil
}
