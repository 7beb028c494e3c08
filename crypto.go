// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"fmt"

	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// LatticeEncryptor encrypts integers into radix ciphertexts for a
// LatticeEngine. It works with either a secret or a public key.
type LatticeEncryptor struct {
	lp     LatticeParameters
	params Parameters
	enc    *rlwe.Encryptor
	ringQ  *ring.Ring
	scale  float64
}

// NewLatticeEncryptor creates an encryptor. key is an *rlwe.SecretKey or
// *rlwe.PublicKey.
func NewLatticeEncryptor(lp LatticeParameters, p Parameters, key rlwe.EncryptionKey) *LatticeEncryptor {
	space := p.TotalModulus()
	return &LatticeEncryptor{
		lp:     lp,
		params: p,
		enc:    rlwe.NewEncryptor(lp.paramsLWE, key),
		ringQ:  lp.paramsLWE.RingQ(),
		scale:  float64(lp.QLWE()) / float64(2*space),
	}
}

// EncryptDigit encrypts one digit value in [0, MessageModulus).
func (e *LatticeEncryptor) EncryptDigit(value uint64) (*Block, error) {
	m := uint64(e.params.MessageModulus)
	if value >= m {
		return nil, fmt.Errorf("radix: digit %d out of range [0, %d)", value, m)
	}
	ct, err := e.encryptRaw(value)
	if err != nil {
		return nil, err
	}
	return &Block{Payload: &LatticeValue{ct: ct}, Degree: Degree(m - 1)}, nil
}

// EncryptUint64 encrypts an unsigned integer over numBlocks digits, least
// significant first. The value is reduced modulo the radix capacity.
func (e *LatticeEncryptor) EncryptUint64(value uint64, numBlocks int) (*RadixCiphertext, error) {
	blocks, err := e.encodeBlocks(value, numBlocks)
	if err != nil {
		return nil, err
	}
	return &RadixCiphertext{blocks: blocks}, nil
}

// EncryptInt64 encrypts a signed integer in two's complement over numBlocks
// digits.
func (e *LatticeEncryptor) EncryptInt64(value int64, numBlocks int) (*SignedRadixCiphertext, error) {
	blocks, err := e.encodeBlocks(uint64(value), numBlocks)
	if err != nil {
		return nil, err
	}
	return &SignedRadixCiphertext{blocks: blocks}, nil
}

// EncryptBool encrypts a boolean.
func (e *LatticeEncryptor) EncryptBool(value bool) (*BooleanBlock, error) {
	var v uint64
	if value {
		v = 1
	}
	ct, err := e.encryptRaw(v)
	if err != nil {
		return nil, err
	}
	return NewBooleanBlockUnchecked(&Block{Payload: &LatticeValue{ct: ct}, Degree: 1}), nil
}

func (e *LatticeEncryptor) encodeBlocks(value uint64, numBlocks int) ([]*Block, error) {
	m := uint64(e.params.MessageModulus)
	blocks := make([]*Block, numBlocks)
	for i := range blocks {
		b, err := e.EncryptDigit(value % m)
		if err != nil {
			return nil, err
		}
		blocks[i] = b
		value /= m
	}
	return blocks, nil
}

func (e *LatticeEncryptor) encryptRaw(value uint64) (*rlwe.Ciphertext, error) {
	pt := rlwe.NewPlaintext(e.lp.paramsLWE, e.lp.paramsLWE.MaxLevel())
	pt.Value.Coeffs[0][0] = uint64(float64(value)*e.scale) % e.lp.QLWE()
	e.ringQ.NTT(pt.Value, pt.Value)

	ct := rlwe.NewCiphertext(e.lp.paramsLWE, 1, e.lp.paramsLWE.MaxLevel())
	if err := e.enc.Encrypt(pt, ct); err != nil {
		return nil, fmt.Errorf("radix: encrypt digit: %w", err)
	}
	return ct, nil
}

// LatticeDecryptor decrypts radix ciphertexts produced by a LatticeEngine.
type LatticeDecryptor struct {
	lp     LatticeParameters
	params Parameters
	dec    *rlwe.Decryptor
	ringQ  *ring.Ring
	space  uint64
}

// NewLatticeDecryptor creates a decryptor from the secret key.
func NewLatticeDecryptor(lp LatticeParameters, p Parameters, sk *SecretKey) *LatticeDecryptor {
	return &LatticeDecryptor{
		lp:     lp,
		params: p,
		dec:    rlwe.NewDecryptor(lp.paramsLWE, sk.SKLWE),
		ringQ:  lp.paramsLWE.RingQ(),
		space:  p.TotalModulus(),
	}
}

// DecryptDigit decrypts one digit to its full value in [0, TotalModulus),
// carries included.
func (d *LatticeDecryptor) DecryptDigit(b *Block) uint64 {
	v, ok := b.Payload.(*LatticeValue)
	if !ok {
		panic("radix: block payload is not a lattice ciphertext")
	}
	pt := rlwe.NewPlaintext(d.lp.paramsLWE, v.ct.Level())
	d.dec.Decrypt(v.ct, pt)
	if pt.IsNTT {
		d.ringQ.INTT(pt.Value, pt.Value)
	}

	c := pt.Value.Coeffs[0][0]
	q := d.lp.QLWE()
	scaled := float64(c) * float64(2*d.space) / float64(q)
	return uint64(scaled+0.5) % d.space
}

// DecryptUint64 decrypts an unsigned radix ciphertext. Digits must be
// clean; pending carries fold in modulo the radix capacity.
func (d *LatticeDecryptor) DecryptUint64(ct *RadixCiphertext) uint64 {
	m := uint64(d.params.MessageModulus)
	var value, shift uint64 = 0, 1
	for _, b := range ct.Blocks() {
		value += d.DecryptDigit(b) * shift
		shift *= m
	}
	if c := capValue(m, len(ct.Blocks())); c != 0 {
		value %= c
	}
	return value
}

// DecryptInt64 decrypts a signed radix ciphertext in two's complement.
func (d *LatticeDecryptor) DecryptInt64(ct *SignedRadixCiphertext) int64 {
	m := uint64(d.params.MessageModulus)
	n := len(ct.Blocks())
	var value, shift uint64 = 0, 1
	for _, b := range ct.Blocks() {
		value += d.DecryptDigit(b) * shift
		shift *= m
	}
	c := capValue(m, n)
	if c == 0 {
		return int64(value)
	}
	value %= c
	if value >= c/2 {
		return int64(value) - int64(c)
	}
	return int64(value)
}

// DecryptBool decrypts an encrypted boolean.
func (d *LatticeDecryptor) DecryptBool(b *BooleanBlock) bool {
	return d.DecryptDigit(b.Block()) != 0
}

// capValue returns MessageModulus^numBlocks, saturating at 2^64 wrap-free
// widths.
func capValue(m uint64, numBlocks int) uint64 {
	c := uint64(1)
	for i := 0; i < numBlocks; i++ {
		next := c * m
		if next/m != c {
			return 0
		}
		c = next
	}
	return c
}
