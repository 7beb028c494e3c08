// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import "fmt"

// Eq compares two clean values for equality and returns an encrypted
// boolean: one equality bit per digit pair, then a conjunction reduction.
func Eq[T RadixValue[T]](ev *Evaluator, a, b T) (*BooleanBlock, error) {
	assertClean(ev, a)
	assertClean(ev, b)
	ab, bb := a.Blocks(), b.Blocks()
	sameWidth(ab, bb)
	bits := make([]*Block, len(ab))
	err := ev.parallelFor(len(ab), func(i int) error {
		var err error
		bits[i], err = ev.engine.CompareBlock(ab[i], bb[i])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("radix: equality scan: %w", err)
	}
	out, err := ev.allTrue(bits)
	if err != nil {
		return nil, err
	}
	return NewBooleanBlockUnchecked(out), nil
}

// Ne compares two clean values for inequality.
func Ne[T RadixValue[T]](ev *Evaluator, a, b T) (*BooleanBlock, error) {
	eq, err := Eq(ev, a, b)
	if err != nil {
		return nil, err
	}
	return ev.BitNot(eq)
}

// ScalarEq compares a clean unsigned value against a cleartext constant.
// Each digit is matched against the constant's digit by one lookup, then
// the match bits are reduced. A constant too wide for the radix yields a
// trivial false.
func (ev *Evaluator) ScalarEq(ct *RadixCiphertext, scalar uint64) (*BooleanBlock, error) {
	assertClean(ev, ct)
	m := uint64(ev.params.MessageModulus)
	blocks := ct.Blocks()
	rest := scalar
	bits := make([]*Block, len(blocks))
	digits := make([]uint64, len(blocks))
	for i := range blocks {
		digits[i] = rest % m
		rest /= m
	}
	if rest != 0 {
		return NewBooleanBlockUnchecked(ev.engine.CreateTrivial(0)), nil
	}
	err := ev.parallelFor(len(blocks), func(i int) error {
		want := digits[i]
		var err error
		bits[i], err = ev.engine.ApplyLookup(blocks[i], func(v uint64) uint64 {
			if v == want {
				return 1
			}
			return 0
		}, 1)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("radix: scalar equality scan: %w", err)
	}
	out, err := ev.allTrue(bits)
	if err != nil {
		return nil, err
	}
	return NewBooleanBlockUnchecked(out), nil
}

// ScalarNe compares a clean unsigned value against a cleartext constant for
// inequality.
func (ev *Evaluator) ScalarNe(ct *RadixCiphertext, scalar uint64) (*BooleanBlock, error) {
	eq, err := ev.ScalarEq(ct, scalar)
	if err != nil {
		return nil, err
	}
	return ev.BitNot(eq)
}

// allTrue reduces boolean digits to one encrypted boolean that is 1 when
// every input is 1. Chunks of bits are folded by plain addition, one lookup
// per chunk tests the count against the chunk length, and the rounds repeat
// until one bit remains. Headroom bounds a chunk by the digit capacity.
func (ev *Evaluator) allTrue(bits []*Block) (*Block, error) {
	eng := ev.engine
	if len(bits) == 0 {
		return eng.CreateTrivial(1), nil
	}
	maxChunk := int(ev.params.TotalModulus() - 1)
	for len(bits) > 1 {
		numChunks := (len(bits) + maxChunk - 1) / maxChunk
		next := make([]*Block, numChunks)
		cur := bits
		err := ev.parallelFor(numChunks, func(c int) error {
			lo := c * maxChunk
			hi := lo + maxChunk
			if hi > len(cur) {
				hi = len(cur)
			}
			acc := cur[lo].Copy()
			for _, b := range cur[lo+1:hi] {
				if err := eng.AddAssign(acc, b); err != nil {
					return err
				}
			}
			want := uint64(hi - lo)
			var err error
			next[c], err = eng.ApplyLookup(acc, func(v uint64) uint64 {
				if v == want {
					return 1
				}
				return 0
			}, 1)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("radix: conjunction reduction: %w", err)
		}
		bits = next
	}
	return bits[0], nil
}

// anyNonZero reduces digits to one encrypted boolean that is 1 when at
// least one digit is non-zero. Degree-0 digits are provably zero and are
// dropped up front. The rest are folded by plain addition up to the
// capacity headroom, one lookup per chunk tests the fold against zero,
// and the rounds repeat on the resulting bits.
func (ev *Evaluator) anyNonZero(blocks []*Block) (*Block, error) {
	eng := ev.engine
	live := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Degree == 0 {
			continue
		}
		live = append(live, b)
	}
	blocks = live
	if len(blocks) == 0 {
		return eng.CreateTrivial(0), nil
	}
	capacity := Degree(ev.params.TotalModulus())
	for len(blocks) > 1 {
		var next []*Block
		lo := 0
		for lo < len(blocks) {
			// Greedy chunk: fold while the summed degree keeps headroom.
			acc := blocks[lo].Copy()
			hi := lo + 1
			for hi < len(blocks) && acc.Degree+blocks[hi].Degree < capacity {
				if err := eng.AddAssign(acc, blocks[hi]); err != nil {
					return nil, fmt.Errorf("radix: non-zero fold: %w", err)
				}
				hi++
			}
			next = append(next, acc)
			lo = hi
		}
		bits := make([]*Block, len(next))
		err := ev.parallelFor(len(next), func(i int) error {
			var err error
			bits[i], err = eng.ApplyLookup(next[i], func(v uint64) uint64 {
				if v != 0 {
					return 1
				}
				return 0
			}, 1)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("radix: non-zero reduction: %w", err)
		}
		blocks = bits
	}
	if blocks[0].Degree > 1 {
		return eng.ApplyLookup(blocks[0], func(v uint64) uint64 {
			if v != 0 {
				return 1
			}
			return 0
		}, 1)
	}
	return blocks[0], nil
}
