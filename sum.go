// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import "fmt"

// partialSum is the output of the column reducer: one dirty digit per
// position plus, when requested, every carry that left the most significant
// position during reduction.
type partialSum struct {
	blocks           []*Block
	collectedCarries []*Block
}

// uncheckedPartialSumBlocks reduces many same-width operands to a single
// dirty radix value with carry-save column reduction.
//
// Digits are grouped into columns by position; provably-zero digits are
// dropped. While any column holds at least chunkSize digits, full chunks
// are folded by plain addition and then split by one message/carry
// extraction pair per chunk, all chunks of a round bootstrapping in
// parallel. Messages rejoin their column, carries move one column up.
// Columns shorter than a chunk are folded by plain addition alone, so two
// operands cost no bootstraps at all. Carries leaving the top column are
// collected when collect is set and discarded otherwise (arithmetic modulo
// the radix capacity).
//
// Every operand digit must have empty carries; the result is dirty.
func (ev *Evaluator) uncheckedPartialSumBlocks(terms [][]*Block, collect bool) (*partialSum, error) {
	eng := ev.engine
	n := len(terms[0])
	msgMax := Degree(ev.params.MessageModulus - 1)
	chunkSize := ev.params.MaxSumSize(msgMax)

	columns := make([][]*Block, n)
	for _, term := range terms {
		if len(term) != n {
			panic("radix: sum operands must have the same number of digits")
		}
		for i, b := range term {
			if !b.MessageFits(ev.params) {
				panic("radix: sum operand digit carries are not empty")
			}
			if b.Degree == 0 {
				continue
			}
			columns[i] = append(columns[i], b.Copy())
		}
	}

	var collected []*Block
	for columnNeedsReduction(columns, chunkSize) {
		// Fold every full chunk by plain addition; the accumulators of a
		// round form one flat task list so every extraction pair can
		// bootstrap concurrently.
		type chunkTask struct {
			col int
			acc *Block
		}
		var tasks []chunkTask
		next := make([][]*Block, n)
		for i, col := range columns {
			full := len(col) / chunkSize
			for c := 0; c < full; c++ {
				chunk := col[c*chunkSize : (c+1)*chunkSize]
				acc := chunk[0]
				for _, b := range chunk[1:] {
					if err := eng.AddAssign(acc, b); err != nil {
						return nil, fmt.Errorf("radix: column %d fold: %w", i, err)
					}
				}
				tasks = append(tasks, chunkTask{col: i, acc: acc})
			}
			next[i] = append(next[i], col[full*chunkSize:]...)
		}

		msgs := make([]*Block, len(tasks))
		carries := make([]*Block, len(tasks))
		err := ev.parallelFor(len(tasks), func(t int) error {
			return ev.join(
				func() error {
					var err error
					msgs[t], err = eng.MessageExtract(tasks[t].acc)
					return err
				},
				func() error {
					var err error
					carries[t], err = eng.CarryExtract(tasks[t].acc)
					return err
				},
			)
		})
		if err != nil {
			return nil, fmt.Errorf("radix: column reduction round: %w", err)
		}

		for t, task := range tasks {
			next[task.col] = append(next[task.col], msgs[t])
			switch {
			case task.col+1 < n:
				next[task.col+1] = append(next[task.col+1], carries[t])
			case collect:
				collected = append(collected, carries[t])
			}
		}
		columns = next
	}

	// Every column now fits one digit's headroom: fold the leftovers by
	// plain addition, refill emptied positions with trivial zeros.
	blocks := make([]*Block, n)
	for i, col := range columns {
		if len(col) == 0 {
			blocks[i] = eng.CreateTrivial(0)
			continue
		}
		acc := col[0]
		for _, b := range col[1:] {
			if err := eng.AddAssign(acc, b); err != nil {
				return nil, fmt.Errorf("radix: column %d final fold: %w", i, err)
			}
		}
		blocks[i] = acc
	}
	return &partialSum{blocks: blocks, collectedCarries: collected}, nil
}

func columnNeedsReduction(columns [][]*Block, chunkSize int) bool {
	for _, col := range columns {
		if len(col) >= chunkSize {
			return true
		}
	}
	return false
}

// sumTermBlocks gathers the digit slices of the operands.
func sumTermBlocks[T RadixValue[T]](terms []T) [][]*Block {
	bs := make([][]*Block, len(terms))
	for i, t := range terms {
		bs[i] = t.Blocks()
	}
	return bs
}

// UncheckedSum reduces the operands to one dirty value without resolving
// carries. Every operand digit must already have empty carries; the result
// encrypts the sum modulo the radix capacity but its digits may exceed the
// message space. An empty operand list has no sum: the zero value is
// returned with a nil error.
func UncheckedSum[T RadixValue[T]](ev *Evaluator, terms []T) (T, error) {
	if len(terms) == 0 {
		var zero T
		return zero, nil
	}
	if len(terms) == 1 {
		return terms[0].Copy(), nil
	}
	blocks := sumTermBlocks(terms)
	ps, err := ev.uncheckedPartialSumBlocks(blocks, false)
	if err != nil {
		var zero T
		return zero, err
	}
	return terms[0].FromBlocks(ps.blocks), nil
}

// Sum reduces the operands and resolves all carries, returning a clean
// value. Every operand must have empty carries. An empty operand list
// returns the zero value with a nil error.
func Sum[T RadixValue[T]](ev *Evaluator, terms []T) (T, error) {
	if len(terms) == 0 {
		var zero T
		return zero, nil
	}
	dirty, err := UncheckedSum(ev, terms)
	if err != nil {
		var zero T
		return zero, err
	}
	return FullPropagate(ev, dirty)
}

// SmartSum cleans any dirty operand in place before reducing, then behaves
// like Sum. Operands needing propagation are cleaned concurrently.
func SmartSum[T RadixValue[T]](ev *Evaluator, terms []T) (T, error) {
	if len(terms) == 0 {
		var zero T
		return zero, nil
	}
	cleaned := make([]T, len(terms))
	err := ev.parallelFor(len(terms), func(i int) error {
		if terms[i].CarriesAreEmpty(ev.params) {
			cleaned[i] = terms[i]
			return nil
		}
		var err error
		cleaned[i], err = FullPropagate(ev, terms[i])
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return Sum(ev, cleaned)
}

// unsignedOverflowingSumBlocks reduces the operands and reports whether the
// exact sum exceeds the radix capacity. The dirty reduction keeps the
// carries that left the top column; the dirty digits are split into a
// message ladder and a carry ladder shifted one position up, the ladders
// are folded by plain addition and propagated with a carry-out flag, and
// the flag is OR-ed with "any collected carry is non-zero".
func (ev *Evaluator) unsignedOverflowingSumBlocks(terms [][]*Block) ([]*Block, *Block, error) {
	eng := ev.engine

	ps, err := ev.uncheckedPartialSumBlocks(terms, true)
	if err != nil {
		return nil, nil, err
	}
	n := len(ps.blocks)
	collected := ps.collectedCarries

	msgs := make([]*Block, n)
	carries := make([]*Block, n)
	err = ev.parallelFor(n, func(i int) error {
		b := ps.blocks[i]
		if b.MessageFits(ev.params) {
			msgs[i] = b
			return nil
		}
		return ev.join(
			func() error {
				var err error
				msgs[i], err = eng.MessageExtract(b)
				return err
			},
			func() error {
				var err error
				carries[i], err = eng.CarryExtract(b)
				return err
			},
		)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("radix: overflowing sum split: %w", err)
	}

	// Fold the shifted carry ladder into the message ladder; the top carry
	// leaves the radix and joins the collected ones.
	work := make([]*Block, n)
	work[0] = msgs[0]
	for i := 1; i < n; i++ {
		if carries[i-1] == nil {
			work[i] = msgs[i]
			continue
		}
		work[i], err = eng.Add(msgs[i], carries[i-1])
		if err != nil {
			return nil, nil, fmt.Errorf("radix: overflowing sum ladder fold: %w", err)
		}
	}
	if carries[n-1] != nil {
		collected = append(collected, carries[n-1])
	}

	out, flag, err := ev.propagateBlocks(work, propagation{flag: FlagOverflow})
	if err != nil {
		return nil, nil, err
	}
	if len(collected) > 0 {
		spilled, err := ev.anyNonZero(collected)
		if err != nil {
			return nil, nil, err
		}
		flag, err = eng.ApplyBivariateLookup(flag, spilled, func(a, b uint64) uint64 {
			return a | b
		}, 1)
		if err != nil {
			return nil, nil, fmt.Errorf("radix: overflowing sum flag: %w", err)
		}
	}
	return out, flag, nil
}

// UncheckedUnsignedOverflowingSum reduces unsigned operands with empty
// carries and returns the clean sum together with an encrypted overflow
// indicator that is 1 when the exact sum does not fit the radix width. An
// empty operand list has no sum: both results are nil with a nil error.
func (ev *Evaluator) UncheckedUnsignedOverflowingSum(terms []*RadixCiphertext) (*RadixCiphertext, *BooleanBlock, error) {
	if len(terms) == 0 {
		return nil, nil, nil
	}
	if len(terms) == 1 {
		return terms[0].Copy(), NewBooleanBlockUnchecked(ev.engine.CreateTrivial(0)), nil
	}
	blocks := sumTermBlocks(terms)
	out, flag, err := ev.unsignedOverflowingSumBlocks(blocks)
	if err != nil {
		return nil, nil, err
	}
	return &RadixCiphertext{blocks: out}, NewBooleanBlockUnchecked(flag), nil
}

// UnsignedOverflowingSum is UncheckedUnsignedOverflowingSum with the clean
// operand contract checked up front.
func (ev *Evaluator) UnsignedOverflowingSum(terms []*RadixCiphertext) (*RadixCiphertext, *BooleanBlock, error) {
	for _, t := range terms {
		if !t.CarriesAreEmpty(ev.params) {
			panic("radix: overflowing sum operand has pending carries")
		}
	}
	return ev.UncheckedUnsignedOverflowingSum(terms)
}

// SmartUnsignedOverflowingSum cleans dirty operands first, then sums with
// overflow detection.
func (ev *Evaluator) SmartUnsignedOverflowingSum(terms []*RadixCiphertext) (*RadixCiphertext, *BooleanBlock, error) {
	cleaned := make([]*RadixCiphertext, len(terms))
	err := ev.parallelFor(len(terms), func(i int) error {
		if terms[i].CarriesAreEmpty(ev.params) {
			cleaned[i] = terms[i]
			return nil
		}
		var err error
		cleaned[i], err = FullPropagate(ev, terms[i])
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return ev.UncheckedUnsignedOverflowingSum(cleaned)
}
