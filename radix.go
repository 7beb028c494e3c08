// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package radix implements homomorphic arithmetic over multi-block encrypted
// integers: values too large for one ciphertext are stored as an ordered
// sequence of small encrypted digits, and every operation has to account for
// carries that are themselves encrypted.
//
// The core of the package is the carry-propagation protocol and the parallel
// multi-operand summation (column reduction) built on top of it. Single-digit
// homomorphic primitives are abstracted behind the BlockEngine interface;
// this package ships a degree-faithful cleartext simulation engine and a
// lattice-backed engine built on luxfi/lattice programmable bootstrapping.
package radix

// RadixValue is the capability shared by every radix-like ciphertext:
// unsigned, signed, or boolean. Blocks are ordered least-significant first
// and all share one message/carry layout.
type RadixValue[T any] interface {
	// Blocks returns the digit sequence without transferring ownership.
	Blocks() []*Block
	// IntoBlocks consumes the value and returns its digits.
	IntoBlocks() []*Block
	// FromBlocks assembles a new value of the same kind from digits.
	FromBlocks(blocks []*Block) T
	// Copy returns an independent deep copy.
	Copy() T
	// CarriesAreEmpty reports whether every digit fits its message space.
	CarriesAreEmpty(p Parameters) bool
}

// RadixCiphertext is an encrypted unsigned integer in radix decomposition.
// The represented value is sum(block[i] * MessageModulus^i) modulo
// MessageModulus^numBlocks.
type RadixCiphertext struct {
	blocks []*Block
}

// NewRadixCiphertext wraps a digit sequence, least-significant first.
func NewRadixCiphertext(blocks []*Block) *RadixCiphertext {
	return &RadixCiphertext{blocks: blocks}
}

// Blocks returns the digit sequence.
func (ct *RadixCiphertext) Blocks() []*Block { return ct.blocks }

// IntoBlocks consumes the ciphertext and returns its digits.
func (ct *RadixCiphertext) IntoBlocks() []*Block {
	blocks := ct.blocks
	ct.blocks = nil
	return blocks
}

// FromBlocks assembles a new unsigned radix ciphertext.
func (ct *RadixCiphertext) FromBlocks(blocks []*Block) *RadixCiphertext {
	return &RadixCiphertext{blocks: blocks}
}

// NumBlocks returns the number of digits.
func (ct *RadixCiphertext) NumBlocks() int { return len(ct.blocks) }

// Copy returns an independent deep copy.
func (ct *RadixCiphertext) Copy() *RadixCiphertext {
	return &RadixCiphertext{blocks: copyBlocks(ct.blocks)}
}

// CarriesAreEmpty reports whether every digit fits its message space. Only
// such "clean" ciphertexts may be compared or fed into unchecked operations.
func (ct *RadixCiphertext) CarriesAreEmpty(p Parameters) bool {
	return blocksAreClean(ct.blocks, p)
}

// SignedRadixCiphertext is an encrypted two's-complement integer in radix
// decomposition. The digit layout is identical to the unsigned form; only
// decoding and overflow detection differ.
type SignedRadixCiphertext struct {
	blocks []*Block
}

// NewSignedRadixCiphertext wraps a digit sequence, least-significant first.
func NewSignedRadixCiphertext(blocks []*Block) *SignedRadixCiphertext {
	return &SignedRadixCiphertext{blocks: blocks}
}

// Blocks returns the digit sequence.
func (ct *SignedRadixCiphertext) Blocks() []*Block { return ct.blocks }

// IntoBlocks consumes the ciphertext and returns its digits.
func (ct *SignedRadixCiphertext) IntoBlocks() []*Block {
	blocks := ct.blocks
	ct.blocks = nil
	return blocks
}

// FromBlocks assembles a new signed radix ciphertext.
func (ct *SignedRadixCiphertext) FromBlocks(blocks []*Block) *SignedRadixCiphertext {
	return &SignedRadixCiphertext{blocks: blocks}
}

// NumBlocks returns the number of digits.
func (ct *SignedRadixCiphertext) NumBlocks() int { return len(ct.blocks) }

// Copy returns an independent deep copy.
func (ct *SignedRadixCiphertext) Copy() *SignedRadixCiphertext {
	return &SignedRadixCiphertext{blocks: copyBlocks(ct.blocks)}
}

// CarriesAreEmpty reports whether every digit fits its message space.
func (ct *SignedRadixCiphertext) CarriesAreEmpty(p Parameters) bool {
	return blocksAreClean(ct.blocks, p)
}

func blocksAreClean(blocks []*Block, p Parameters) bool {
	for _, b := range blocks {
		if !b.MessageFits(p) {
			return false
		}
	}
	return true
}
