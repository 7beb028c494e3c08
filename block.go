// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import "fmt"

// Degree is a cleartext upper bound on the plaintext magnitude currently
// encoded in a Block. It is metadata only: operations track it so that the
// algorithm layer can tell, without decrypting, whether a block still fits
// its message space or has spilled into carry space.
type Degree uint64

// Parameters describes the plaintext layout of a single encrypted digit.
// A digit's total capacity is MessageModulus * CarryModulus; values below
// MessageModulus are "message", the rest is carry headroom.
type Parameters struct {
	// MessageModulus is the size of a digit's message space. The positional
	// base of a radix ciphertext.
	MessageModulus uint64
	// CarryModulus is the size of a digit's carry space.
	CarryModulus uint64
}

// DefaultParameters matches the common 2-bit message / 2-bit carry layout.
var DefaultParameters = Parameters{MessageModulus: 4, CarryModulus: 4}

// TotalModulus returns the full plaintext capacity of one digit.
func (p Parameters) TotalModulus() uint64 {
	return p.MessageModulus * p.CarryModulus
}

// MaxDegree returns the largest degree an accumulator may reach and still
// leave room for one incoming propagated carry. The reserved headroom is the
// largest carry a block at full capacity can emit.
func (p Parameters) MaxDegree() Degree {
	reserve := (p.TotalModulus() - 1) / p.MessageModulus
	return Degree(p.TotalModulus() - 1 - reserve)
}

// MaxSumSize returns the largest number of digits of the given degree that
// may be summed by plain addition without exceeding MaxDegree.
func (p Parameters) MaxSumSize(d Degree) int {
	if d == 0 {
		panic("radix: MaxSumSize of a provably-zero digit")
	}
	return int(uint64(p.MaxDegree()) / uint64(d))
}

// Validate checks that the moduli describe a usable digit layout. Carry
// space must match message space (the 2-bit/2-bit, 3-bit/3-bit... layouts):
// propagated carries must fit the next digit's message space, and operand
// pairs must pack into one digit for bivariate lookups.
func (p Parameters) Validate() error {
	if p.MessageModulus < 4 || p.MessageModulus&(p.MessageModulus-1) != 0 {
		return fmt.Errorf("message modulus must be a power of two >= 4, got %d", p.MessageModulus)
	}
	if p.CarryModulus != p.MessageModulus {
		return fmt.Errorf("carry modulus %d must equal message modulus %d", p.CarryModulus, p.MessageModulus)
	}
	return nil
}

// Payload is the engine-owned encrypted value inside a Block. The algorithm
// layer never inspects it; it only moves it around and hands it back to the
// engine that produced it.
type Payload interface {
	// CopyPayload returns an independent copy of the encrypted value.
	CopyPayload() Payload
}

// Block is one encrypted digit of a radix integer: an opaque payload plus
// its cleartext degree bound.
type Block struct {
	Payload Payload
	Degree  Degree
}

// Copy returns an independent copy of the block.
func (b *Block) Copy() *Block {
	return &Block{Payload: b.Payload.CopyPayload(), Degree: b.Degree}
}

// MessageFits reports whether the block's degree fits inside the message
// space, i.e. the block carries no unpropagated overflow.
func (b *Block) MessageFits(p Parameters) bool {
	return uint64(b.Degree) < p.MessageModulus
}

// BooleanBlock is a block known to encrypt 0 or 1. It is produced by flag
// extraction and comparisons; its degree is at most 1.
type BooleanBlock struct {
	block *Block
}

// NewBooleanBlockUnchecked wraps a block the caller asserts is boolean.
func NewBooleanBlockUnchecked(b *Block) *BooleanBlock {
	return &BooleanBlock{block: b}
}

// Block returns the underlying encrypted digit.
func (bb *BooleanBlock) Block() *Block {
	return bb.block
}

// Copy returns an independent copy of the boolean block.
func (bb *BooleanBlock) Copy() *BooleanBlock {
	return &BooleanBlock{block: bb.block.Copy()}
}

// copyBlocks deep-copies a block slice.
func copyBlocks(blocks []*Block) []*Block {
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Copy()
	}
	return out
}
