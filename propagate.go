// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import "fmt"

// Flag selects the boundary signal a propagation reports alongside the
// cleaned digits.
type Flag uint8

const (
	// FlagNone requests no boundary output.
	FlagNone Flag = iota
	// FlagCarry requests the carry leaving the most significant digit.
	FlagCarry
	// FlagOverflow requests the unsigned overflow indicator, which for an
	// unsigned radix is the carry-out rendered as a boolean.
	FlagOverflow
	// FlagSignedOverflow requests the signed (two's complement) overflow
	// indicator. Only meaningful directly after a two-operand signed
	// addition; the evaluator computes it internally for
	// SignedOverflowingAdd and rejects it on the public entry points.
	FlagSignedOverflow
)

// PropagateOptions control a PropagateCarries call.
type PropagateOptions struct {
	// CarryIn is an optional encrypted carry absorbed below the least
	// significant digit. Nil means no incoming carry.
	CarryIn *BooleanBlock
	// Flag selects which boundary signal, if any, to return.
	Flag Flag
}

// propagation carries the internal per-call state for one propagation run.
// topPair holds the most significant digits of the two original operands
// when a signed overflow flag was requested; the packed pair plus the carry
// entering the top digit determine sign overflow.
type propagation struct {
	carryIn *Block
	flag    Flag
	topPair *Block
}

// FullPropagate resolves every pending carry of ct, returning a value whose
// digits are all clean. The result encrypts the same integer modulo the
// radix capacity. Digits must not exceed MaxDegree: every operation in this
// package maintains that bound, so it only matters for hand-built inputs.
func FullPropagate[T RadixValue[T]](ev *Evaluator, ct T) (T, error) {
	out, _, err := ev.propagateBlocks(ct.Blocks(), propagation{})
	if err != nil {
		var zero T
		return zero, err
	}
	return ct.FromBlocks(out), nil
}

// PropagateCarries is FullPropagate with an optional carry-in and an
// optional boundary flag. The returned BooleanBlock is nil when
// opts.Flag is FlagNone.
func PropagateCarries[T RadixValue[T]](ev *Evaluator, ct T, opts PropagateOptions) (T, *BooleanBlock, error) {
	if opts.Flag == FlagSignedOverflow {
		panic("radix: signed overflow flag requires the operand pair; use SignedOverflowingAdd")
	}
	p := propagation{flag: opts.Flag}
	if opts.CarryIn != nil {
		p.carryIn = opts.CarryIn.Block()
	}
	out, flag, err := ev.propagateBlocks(ct.Blocks(), p)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	var fb *BooleanBlock
	if flag != nil {
		fb = NewBooleanBlockUnchecked(flag)
	}
	return ct.FromBlocks(out), fb, nil
}

// propagateBlocks dispatches one propagation run to the configured
// algorithm. It returns the cleaned digits and the requested boundary flag
// digit (nil when p.flag is FlagNone).
func (ev *Evaluator) propagateBlocks(blocks []*Block, p propagation) ([]*Block, *Block, error) {
	if len(blocks) == 0 {
		var flag *Block
		if p.flag != FlagNone {
			flag = ev.engine.CreateTrivial(0)
		}
		return nil, flag, nil
	}
	algo := ev.algo
	if algo == AlgorithmAuto {
		// The prefix network only pays for itself once several digits can
		// bootstrap at the same time.
		if len(blocks) >= 4 && ev.workers > 1 {
			algo = AlgorithmParallelPrefix
		} else {
			algo = AlgorithmSequential
		}
	}
	if algo == AlgorithmParallelPrefix {
		return ev.propagatePrefix(blocks, p)
	}
	return ev.propagateSequential(blocks, p)
}

// propagateSequential resolves carries with the classic ripple chain: add
// the incoming carry to each digit in turn, then extract message and carry
// as a fork-join pair. 2n bootstraps on the critical path.
func (ev *Evaluator) propagateSequential(blocks []*Block, p propagation) ([]*Block, *Block, error) {
	eng := ev.engine
	n := len(blocks)
	out := make([]*Block, n)
	carry := p.carryIn
	var intoTop *Block

	needTopCarry := p.flag == FlagCarry || p.flag == FlagOverflow
	for i, b := range blocks {
		acc := b.Copy()
		if carry != nil {
			if err := eng.AddAssign(acc, carry); err != nil {
				return nil, nil, fmt.Errorf("radix: carry chain at digit %d: %w", i, err)
			}
		}
		if i == n-1 {
			intoTop = carry
		}
		wantCarry := i < n-1 || needTopCarry
		var msg, c *Block
		err := ev.join(
			func() error {
				var err error
				msg, err = eng.MessageExtract(acc)
				return err
			},
			func() error {
				if !wantCarry {
					return nil
				}
				var err error
				c, err = eng.CarryExtract(acc)
				return err
			},
		)
		if err != nil {
			return nil, nil, fmt.Errorf("radix: carry chain at digit %d: %w", i, err)
		}
		out[i] = msg
		carry = c
	}

	flag, err := ev.finishFlag(p, carry, intoTop)
	if err != nil {
		return nil, nil, err
	}
	return out, flag, nil
}

// propagatePrefix resolves carries with a Hillis-Steele prefix network.
//
// Digits are first brought into the single-carry domain [0, 2m-1) by one
// message/carry split round when any degree exceeds it; the split carries
// are folded into the next lane by plain addition. Each lane then publishes
// a carry state (0 none, 1 propagate, 2 generate) and log2(n) combine
// rounds resolve the states with the associative operator
//
//	combine(cur, prev) = cur       if cur != propagate
//	                     prev      otherwise
//
// applied at doubling strides. A resolved state is turned into a carry bit
// by one more lookup, and a final bivariate round folds each carry bit into
// the lane above it. O(n log n) bootstraps, O(log n) sequential rounds.
func (ev *Evaluator) propagatePrefix(blocks []*Block, p propagation) ([]*Block, *Block, error) {
	eng := ev.engine
	n := len(blocks)
	m := uint64(ev.params.MessageModulus)
	singleCarryMax := Degree(2*m - 2)

	needSplit := false
	for _, b := range blocks {
		if b.Degree > singleCarryMax {
			needSplit = true
			break
		}
	}

	// Stage 1: single-carry domain. After this stage every work digit is
	// at most 2m-2 (2m-1 for lane 0 once the carry-in lands) so one carry
	// per lane boundary suffices.
	work := make([]*Block, n)
	var splitTopCarry *Block
	if needSplit {
		msgs := make([]*Block, n)
		carries := make([]*Block, n)
		err := ev.parallelFor(n, func(i int) error {
			return ev.join(
				func() error {
					var err error
					msgs[i], err = eng.MessageExtract(blocks[i])
					return err
				},
				func() error {
					var err error
					carries[i], err = eng.CarryExtract(blocks[i])
					return err
				},
			)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("radix: prefix split round: %w", err)
		}
		work[0] = msgs[0]
		for i := 1; i < n; i++ {
			v, err := eng.Add(msgs[i], carries[i-1])
			if err != nil {
				return nil, nil, fmt.Errorf("radix: prefix split fold at digit %d: %w", i, err)
			}
			work[i] = v
		}
		// The top split carry leaves the radix entirely; it only matters
		// for the boundary flag.
		splitTopCarry = carries[n-1]
	} else {
		for i, b := range blocks {
			work[i] = b.Copy()
		}
	}
	if p.carryIn != nil {
		if err := eng.AddAssign(work[0], p.carryIn); err != nil {
			return nil, nil, fmt.Errorf("radix: prefix carry-in: %w", err)
		}
	}

	// Stage 2: per-lane carry states. A lane at exactly m-1 propagates
	// whatever arrives from below; at the bottom boundary an unresolved
	// propagate collapses to "no carry", which the bit conversion below
	// yields for free.
	states := make([]*Block, n)
	err := ev.parallelFor(n, func(i int) error {
		s, err := eng.ApplyLookup(work[i], func(v uint64) uint64 {
			switch {
			case v >= m:
				return stateGenerate
			case v == m-1:
				return statePropagate
			default:
				return stateNone
			}
		}, Degree(stateGenerate))
		states[i] = s
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("radix: prefix state round: %w", err)
	}

	// Stage 3: Hillis-Steele combine rounds. Lanes below the stride keep
	// their state; parallelFor is the barrier between rounds.
	for stride := 1; stride < n; stride *= 2 {
		next := make([]*Block, n)
		copy(next, states[:stride])
		err := ev.parallelFor(n-stride, func(k int) error {
			i := k + stride
			s, err := eng.ApplyBivariateLookup(states[i], states[i-stride], combineStates, Degree(stateGenerate))
			next[i] = s
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("radix: prefix combine round (stride %d): %w", stride, err)
		}
		states = next
	}

	// Stage 4: resolved states to carry bits. The top lane's bit is only
	// needed for a boundary flag.
	carryBits := make([]*Block, n)
	topBitWanted := p.flag == FlagCarry || p.flag == FlagOverflow
	err = ev.parallelFor(n, func(i int) error {
		if i == n-1 && !topBitWanted {
			return nil
		}
		c, err := eng.ApplyLookup(states[i], func(s uint64) uint64 {
			if s == stateGenerate {
				return 1
			}
			return 0
		}, 1)
		carryBits[i] = c
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("radix: prefix carry bit round: %w", err)
	}

	// Stage 5: fold each carry bit into the lane above and reduce to the
	// message space. Lane 0 already absorbed the carry-in.
	out := make([]*Block, n)
	err = ev.parallelFor(n, func(i int) error {
		if i == 0 {
			v, err := eng.ApplyLookup(work[0], func(v uint64) uint64 {
				return v % m
			}, Degree(m-1))
			out[0] = v
			return err
		}
		v, err := eng.ApplyBivariateLookup(work[i], carryBits[i-1], func(v, c uint64) uint64 {
			return (v + c) % m
		}, Degree(m-1))
		out[i] = v
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("radix: prefix cleanup round: %w", err)
	}

	var flag *Block
	switch p.flag {
	case FlagNone:
	case FlagCarry, FlagOverflow:
		// The true carry-out is the top split carry plus the carry out of
		// the folded ladder; as a boolean that is an OR.
		if splitTopCarry != nil {
			flag, err = eng.ApplyBivariateLookup(splitTopCarry, carryBits[n-1], func(sc, c uint64) uint64 {
				if sc != 0 || c != 0 {
					return 1
				}
				return 0
			}, 1)
		} else {
			flag = carryBits[n-1]
		}
	case FlagSignedOverflow:
		intoTop := p.carryIn
		if n > 1 {
			intoTop = carryBits[n-2]
		}
		flag, err = ev.signedOverflowFlag(p.topPair, intoTop)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("radix: boundary flag: %w", err)
	}
	return out, flag, nil
}

// Carry state encoding for the prefix network.
const (
	stateNone      uint64 = 0
	statePropagate uint64 = 1
	stateGenerate  uint64 = 2
)

// combineStates is the associative prefix operator: a generating or
// absorbing lane masks everything below it, a propagating lane adopts the
// resolved state arriving from below.
func combineStates(cur, prev uint64) uint64 {
	if cur == statePropagate {
		return prev
	}
	return cur
}

// finishFlag derives the boundary output of a sequential run from its final
// chain carry and the carry that entered the top digit.
func (ev *Evaluator) finishFlag(p propagation, topCarry, intoTop *Block) (*Block, error) {
	switch p.flag {
	case FlagNone:
		return nil, nil
	case FlagCarry, FlagOverflow:
		// The chain carry is a digit up to the carry bound; flags are
		// booleans, so collapse it.
		return ev.engine.ApplyLookup(topCarry, func(c uint64) uint64 {
			if c != 0 {
				return 1
			}
			return 0
		}, 1)
	case FlagSignedOverflow:
		return ev.signedOverflowFlag(p.topPair, intoTop)
	}
	return nil, fmt.Errorf("radix: unknown flag %d", p.flag)
}

// signedOverflowFlag evaluates two's complement overflow from the packed
// most significant operand pair and the carry entering the top digit.
// Overflow is the XOR of the carry into and out of the sign bit. The packed
// pair fills the whole digit, so it cannot be paired with the carry in one
// bivariate lookup: a first lookup condenses the pair into a two-bit code
// (overflow under carry-in 0 and 1), a second selects with the carry.
func (ev *Evaluator) signedOverflowFlag(topPair, intoTop *Block) (*Block, error) {
	if topPair == nil {
		panic("radix: signed overflow flag without the operand pair")
	}
	m := uint64(ev.params.MessageModulus)
	half := m / 2
	overflows := func(a, b, c uint64) uint64 {
		intoSign := (a%half + b%half + c) / half
		outOfSign := (a + b + c) / m
		return (intoSign ^ outOfSign) & 1
	}
	code, err := ev.engine.ApplyLookup(topPair, func(packed uint64) uint64 {
		a, b := packed/m, packed%m
		return overflows(a, b, 0) | overflows(a, b, 1)<<1
	}, 3)
	if err != nil {
		return nil, err
	}
	if intoTop == nil {
		intoTop = ev.engine.CreateTrivial(0)
	}
	return ev.engine.ApplyBivariateLookup(code, intoTop, func(code, cin uint64) uint64 {
		if cin != 0 {
			return code >> 1
		}
		return code & 1
	}, 1)
}
