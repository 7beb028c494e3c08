// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

// BlockEngine is the single-digit service the radix algorithms are built on.
// Implementations operate on one encrypted digit at a time; the radix layer
// composes them into multi-digit arithmetic. Plain additions are cheap and
// carry no bootstrap; extraction and lookup evaluation are bootstrapped and
// dominate the cost of every algorithm in this package.
//
// Evaluation key material held by an engine is immutable after construction:
// all methods must be safe for concurrent use.
type BlockEngine interface {
	// Parameters returns the digit layout the engine operates on.
	Parameters() Parameters

	// Add returns a + b without bootstrapping. Valid only while the summed
	// degree stays below the digit's total capacity.
	Add(a, b *Block) (*Block, error)
	// AddAssign folds b into a without bootstrapping.
	AddAssign(a, b *Block) error
	// ScalarMul returns b * scalar without bootstrapping. Valid only while
	// the scaled degree stays below the digit's total capacity.
	ScalarMul(b *Block, scalar uint64) (*Block, error)

	// MessageExtract bootstraps a possibly over-capacity accumulator into a
	// clean message digit (value mod MessageModulus).
	MessageExtract(b *Block) (*Block, error)
	// CarryExtract bootstraps a possibly over-capacity accumulator into a
	// clean carry digit (value / MessageModulus).
	CarryExtract(b *Block) (*Block, error)

	// ApplyLookup bootstraps b through an arbitrary function over the full
	// digit domain [0, TotalModulus). outDegree bounds the function's range
	// and becomes the result's degree.
	ApplyLookup(b *Block, fn func(uint64) uint64, outDegree Degree) (*Block, error)
	// ApplyBivariateLookup bootstraps the pair (a, b) through an arbitrary
	// two-argument function. Implementations may pack the operands into one
	// digit first; a.Degree*(b.Degree+1) + b.Degree must stay below the
	// digit's total capacity.
	ApplyBivariateLookup(a, b *Block, fn func(uint64, uint64) uint64, outDegree Degree) (*Block, error)

	// CreateTrivial returns a noiseless digit encoding a public value. Its
	// degree equals the value, so a trivial zero is provably zero.
	CreateTrivial(value uint64) *Block

	// CompareBlock returns an encrypted 1 when two clean digits encrypt the
	// same value, 0 otherwise.
	CompareBlock(a, b *Block) (*Block, error)
}

// MaxSumSize returns the largest number of same-degree digits an engine may
// fold by plain addition before an extraction becomes mandatory.
func MaxSumSize(e BlockEngine, d Degree) int {
	return e.Parameters().MaxSumSize(d)
}
