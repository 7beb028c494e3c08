// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqNe(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	engine, ev := newSimEvaluator(t, AlgorithmAuto)
	params := engine.Parameters()

	for _, numBlocks := range []int{1, 2, 4, 16, 40} {
		capacity := capValue(params.MessageModulus, numBlocks)
		if capacity == 0 {
			capacity = 1 << 62
		}
		for trial := 0; trial < 15; trial++ {
			x := rng.Uint64() % capacity
			y := x
			if trial%2 == 0 {
				y = rng.Uint64() % capacity
			}
			a := engine.EncryptUint64(x, numBlocks)
			b := engine.EncryptUint64(y, numBlocks)

			eq, err := Eq(ev, a, b)
			require.NoError(t, err)
			require.Equal(t, x == y, engine.DecryptBool(eq), "%d == %d over %d digits", x, y, numBlocks)

			ne, err := Ne(ev, a, b)
			require.NoError(t, err)
			require.Equal(t, x != y, engine.DecryptBool(ne))
		}
	}
}

func TestEqSigned(t *testing.T) {
	engine, ev := newSimEvaluator(t, AlgorithmAuto)

	a := engine.EncryptInt64(-42, 4)
	b := engine.EncryptInt64(-42, 4)
	c := engine.EncryptInt64(42, 4)

	eq, err := Eq(ev, a, b)
	require.NoError(t, err)
	require.True(t, engine.DecryptBool(eq))

	eq, err = Eq(ev, a, c)
	require.NoError(t, err)
	require.False(t, engine.DecryptBool(eq))
}

func TestEqPanicsOnDirtyOperand(t *testing.T) {
	engine, ev := newSimEvaluator(t, AlgorithmAuto)

	a := engine.EncryptUint64(5, 2)
	dirty, err := UncheckedAdd(ev, a, a)
	require.NoError(t, err)
	require.Panics(t, func() { Eq(ev, dirty, a) })
}

func TestScalarEqNe(t *testing.T) {
	engine, ev := newSimEvaluator(t, AlgorithmAuto)

	ct := engine.EncryptUint64(200, 4)

	for _, tc := range []struct {
		scalar uint64
		want   bool
	}{
		{200, true},
		{201, false},
		{0, false},
		{255, false},
	} {
		eq, err := ev.ScalarEq(ct, tc.scalar)
		require.NoError(t, err)
		require.Equal(t, tc.want, engine.DecryptBool(eq), "scalar %d", tc.scalar)

		ne, err := ev.ScalarNe(ct, tc.scalar)
		require.NoError(t, err)
		require.Equal(t, !tc.want, engine.DecryptBool(ne), "scalar %d", tc.scalar)
	}
}

func TestScalarEqTooWideScalar(t *testing.T) {
	engine, ev := newSimEvaluator(t, AlgorithmAuto)

	// 256 does not fit four 2-bit digits, so equality is trivially false.
	eq, err := ev.ScalarEq(engine.EncryptUint64(0, 4), 256)
	require.NoError(t, err)
	require.False(t, engine.DecryptBool(eq))

	ne, err := ev.ScalarNe(engine.EncryptUint64(0, 4), 256)
	require.NoError(t, err)
	require.True(t, engine.DecryptBool(ne))
}

func TestAllTrueReduction(t *testing.T) {
	engine, ev := newSimEvaluator(t, AlgorithmAuto)

	mkBits := func(n, zeroAt int) []*Block {
		bits := make([]*Block, n)
		for i := range bits {
			v := uint64(1)
			if i == zeroAt {
				v = 0
			}
			bits[i] = engine.CreateTrivial(v)
		}
		return bits
	}

	// Sizes straddling the chunk width (capacity-1 = 15 bits per fold).
	for _, n := range []int{1, 2, 15, 16, 31, 100} {
		out, err := ev.allTrue(mkBits(n, -1))
		require.NoError(t, err)
		require.Equal(t, uint64(1), engine.DecryptBlock(out), "all ones, %d bits", n)

		for _, zeroAt := range []int{0, n / 2, n - 1} {
			out, err := ev.allTrue(mkBits(n, zeroAt))
			require.NoError(t, err)
			require.Equal(t, uint64(0), engine.DecryptBlock(out), "zero at %d of %d", zeroAt, n)
		}
	}

	out, err := ev.allTrue(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), engine.DecryptBlock(out), "empty conjunction")
}

func TestAnyNonZeroReduction(t *testing.T) {
	engine, ev := newSimEvaluator(t, AlgorithmAuto)

	mkBlocks := func(n, hotAt int) []*Block {
		blocks := make([]*Block, n)
		for i := range blocks {
			v := uint64(0)
			if i == hotAt {
				v = 3
			}
			blocks[i] = engine.CreateTrivial(v)
		}
		return blocks
	}

	for _, n := range []int{1, 2, 5, 16, 64} {
		out, err := ev.anyNonZero(mkBlocks(n, -1))
		require.NoError(t, err)
		require.Equal(t, uint64(0), engine.DecryptBlock(out), "all zeros, %d digits", n)

		for _, hotAt := range []int{0, n / 2, n - 1} {
			out, err := ev.anyNonZero(mkBlocks(n, hotAt))
			require.NoError(t, err)
			require.Equal(t, uint64(1), engine.DecryptBlock(out), "hot at %d of %d", hotAt, n)
		}
	}

	out, err := ev.anyNonZero(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), engine.DecryptBlock(out), "empty disjunction")

	// Degree-0 digits are provably zero and never reach a lookup: an
	// all-zero list costs nothing, and one hot digit among trivial zeros
	// costs exactly the final boolean lookup.
	engine.ResetCounters()
	out, err = ev.anyNonZero(mkBlocks(64, -1))
	require.NoError(t, err)
	require.Equal(t, uint64(0), engine.DecryptBlock(out))
	require.Equal(t, uint64(0), engine.Counters().Bootstraps,
		"provably-zero digits fold for free")

	engine.ResetCounters()
	out, err = ev.anyNonZero(mkBlocks(64, 17))
	require.NoError(t, err)
	require.Equal(t, uint64(1), engine.DecryptBlock(out))
	require.Equal(t, uint64(1), engine.Counters().Bootstraps,
		"a single live digit needs one lookup")
}
