// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import "fmt"

func sameWidth(a, b []*Block) {
	if len(a) != len(b) {
		panic("radix: operands must have the same number of digits")
	}
}

func assertClean[T RadixValue[T]](ev *Evaluator, ct T) {
	if !ct.CarriesAreEmpty(ev.params) {
		panic("radix: operand has pending carries")
	}
}

// UncheckedAdd adds digit-wise without bootstrapping. The result is dirty;
// the caller is responsible for enough combined headroom, the engine panics
// when a digit would exceed its capacity.
func UncheckedAdd[T RadixValue[T]](ev *Evaluator, a, b T) (T, error) {
	ab, bb := a.Blocks(), b.Blocks()
	sameWidth(ab, bb)
	out := make([]*Block, len(ab))
	for i := range ab {
		s, err := ev.engine.Add(ab[i], bb[i])
		if err != nil {
			var zero T
			return zero, fmt.Errorf("radix: add digit %d: %w", i, err)
		}
		out[i] = s
	}
	return a.FromBlocks(out), nil
}

// Add adds two clean values and resolves all carries, returning a clean
// value. Panics when an operand has pending carries.
func Add[T RadixValue[T]](ev *Evaluator, a, b T) (T, error) {
	assertClean(ev, a)
	assertClean(ev, b)
	dirty, err := UncheckedAdd(ev, a, b)
	if err != nil {
		var zero T
		return zero, err
	}
	return FullPropagate(ev, dirty)
}

// SmartAdd cleans dirty operands first, then behaves like Add.
func SmartAdd[T RadixValue[T]](ev *Evaluator, a, b T) (T, error) {
	var err error
	if !a.CarriesAreEmpty(ev.params) {
		if a, err = FullPropagate(ev, a); err != nil {
			var zero T
			return zero, err
		}
	}
	if !b.CarriesAreEmpty(ev.params) {
		if b, err = FullPropagate(ev, b); err != nil {
			var zero T
			return zero, err
		}
	}
	return Add(ev, a, b)
}

// AddWithCarry adds two clean values plus an encrypted carry-in below the
// least significant digit and returns the clean sum together with the
// encrypted carry-out. The building block for chaining additions across
// radix boundaries.
func (ev *Evaluator) AddWithCarry(a, b *RadixCiphertext, carryIn *BooleanBlock) (*RadixCiphertext, *BooleanBlock, error) {
	assertClean(ev, a)
	assertClean(ev, b)
	dirty, err := UncheckedAdd(ev, a, b)
	if err != nil {
		return nil, nil, err
	}
	p := propagation{flag: FlagCarry}
	if carryIn != nil {
		p.carryIn = carryIn.Block()
	}
	out, flag, err := ev.propagateBlocks(dirty.Blocks(), p)
	if err != nil {
		return nil, nil, err
	}
	return &RadixCiphertext{blocks: out}, NewBooleanBlockUnchecked(flag), nil
}

// UnsignedOverflowingAdd adds two clean unsigned values and returns the
// clean sum with an encrypted indicator that is 1 when the exact sum does
// not fit the radix width.
func (ev *Evaluator) UnsignedOverflowingAdd(a, b *RadixCiphertext) (*RadixCiphertext, *BooleanBlock, error) {
	assertClean(ev, a)
	assertClean(ev, b)
	dirty, err := UncheckedAdd(ev, a, b)
	if err != nil {
		return nil, nil, err
	}
	out, flag, err := ev.propagateBlocks(dirty.Blocks(), propagation{flag: FlagOverflow})
	if err != nil {
		return nil, nil, err
	}
	return &RadixCiphertext{blocks: out}, NewBooleanBlockUnchecked(flag), nil
}

// SignedOverflowingAdd adds two clean signed values and returns the clean
// sum with an encrypted two's complement overflow indicator. Overflow needs
// both original top digits, so it cannot be recovered from the dirty sum
// alone: the pair is packed into one digit before the addition.
func (ev *Evaluator) SignedOverflowingAdd(a, b *SignedRadixCiphertext) (*SignedRadixCiphertext, *BooleanBlock, error) {
	assertClean(ev, a)
	assertClean(ev, b)
	ab, bb := a.Blocks(), b.Blocks()
	sameWidth(ab, bb)
	if len(ab) == 0 {
		panic("radix: signed overflowing add of zero-width values")
	}
	m := uint64(ev.params.MessageModulus)
	top := len(ab) - 1
	topPair, err := ev.engine.ScalarMul(ab[top], m)
	if err != nil {
		return nil, nil, fmt.Errorf("radix: signed overflow pack: %w", err)
	}
	if err := ev.engine.AddAssign(topPair, bb[top]); err != nil {
		return nil, nil, fmt.Errorf("radix: signed overflow pack: %w", err)
	}
	dirty, err := UncheckedAdd(ev, a, b)
	if err != nil {
		return nil, nil, err
	}
	out, flag, err := ev.propagateBlocks(dirty.Blocks(), propagation{flag: FlagSignedOverflow, topPair: topPair})
	if err != nil {
		return nil, nil, err
	}
	return &SignedRadixCiphertext{blocks: out}, NewBooleanBlockUnchecked(flag), nil
}

// BitOr returns the logical OR of two encrypted booleans.
func (ev *Evaluator) BitOr(a, b *BooleanBlock) (*BooleanBlock, error) {
	return ev.booleanOp(a, b, func(x, y uint64) uint64 { return x | y })
}

// BitAnd returns the logical AND of two encrypted booleans.
func (ev *Evaluator) BitAnd(a, b *BooleanBlock) (*BooleanBlock, error) {
	return ev.booleanOp(a, b, func(x, y uint64) uint64 { return x & y })
}

// BitXor returns the logical XOR of two encrypted booleans.
func (ev *Evaluator) BitXor(a, b *BooleanBlock) (*BooleanBlock, error) {
	return ev.booleanOp(a, b, func(x, y uint64) uint64 { return x ^ y })
}

// BitNot returns the logical negation of an encrypted boolean.
func (ev *Evaluator) BitNot(a *BooleanBlock) (*BooleanBlock, error) {
	out, err := ev.engine.ApplyLookup(a.Block(), func(x uint64) uint64 {
		return 1 - (x & 1)
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("radix: boolean not: %w", err)
	}
	return NewBooleanBlockUnchecked(out), nil
}

func (ev *Evaluator) booleanOp(a, b *BooleanBlock, fn func(x, y uint64) uint64) (*BooleanBlock, error) {
	out, err := ev.engine.ApplyBivariateLookup(a.Block(), b.Block(), fn, 1)
	if err != nil {
		return nil, fmt.Errorf("radix: boolean op: %w", err)
	}
	return NewBooleanBlockUnchecked(out), nil
}
