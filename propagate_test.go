// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// newSimEvaluator creates a simulation engine and an evaluator on top of it.
func newSimEvaluator(t *testing.T, algo Algorithm) (*SimEngine, *Evaluator) {
	t.Helper()
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)
	return engine, NewEvaluatorWithConfig(engine, Config{Algorithm: algo})
}

// randomDirtyBlocks builds digits with arbitrary degrees up to MaxDegree,
// the worst case a propagation must handle.
func randomDirtyBlocks(rng *rand.Rand, p Parameters, n int) []*Block {
	maxDegree := uint64(p.MaxDegree())
	blocks := make([]*Block, n)
	for i := range blocks {
		d := rng.Uint64() % (maxDegree + 1)
		v := uint64(0)
		if d > 0 {
			v = rng.Uint64() % (d + 1)
		}
		blocks[i] = &Block{Payload: SimValue(v), Degree: Degree(d)}
	}
	return blocks
}

// decodeBlocks folds digit values positionally, carries included, modulo
// the radix capacity. The reference decoding for dirty intermediates.
func decodeBlocks(e *SimEngine, blocks []*Block) uint64 {
	m := e.Parameters().MessageModulus
	var out, shift uint64 = 0, 1
	var capacity uint64 = 1
	for range blocks {
		capacity *= m
	}
	for _, b := range blocks {
		out += e.DecryptBlock(b) * shift
		shift *= m
	}
	return out % capacity
}

func TestFullPropagateCleansAndPreservesValue(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, algo := range []Algorithm{AlgorithmSequential, AlgorithmParallelPrefix} {
		engine, ev := newSimEvaluator(t, algo)
		for _, numBlocks := range []int{1, 2, 3, 4, 8, 16} {
			for trial := 0; trial < 20; trial++ {
				blocks := randomDirtyBlocks(rng, engine.Parameters(), numBlocks)
				want := decodeBlocks(engine, blocks)

				out, err := FullPropagate(ev, NewRadixCiphertext(blocks))
				require.NoError(t, err)
				require.True(t, out.CarriesAreEmpty(engine.Parameters()))
				require.Equal(t, want, engine.DecryptUint64(out),
					"algo %d, %d digits", algo, numBlocks)
			}
		}
	}
}

// TestAlgorithmEquivalence feeds identical dirty inputs through both
// propagation algorithms and requires identical digits and flags.
func TestAlgorithmEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	engineSeq, evSeq := newSimEvaluator(t, AlgorithmSequential)
	_, evPar := newSimEvaluator(t, AlgorithmParallelPrefix)
	params := engineSeq.Parameters()

	for numBlocks := 1; numBlocks <= 32; numBlocks++ {
		for trial := 0; trial < 10; trial++ {
			blocks := randomDirtyBlocks(rng, params, numBlocks)
			ctA := NewRadixCiphertext(copyBlocks(blocks))
			ctB := NewRadixCiphertext(copyBlocks(blocks))

			outSeq, flagSeq, err := PropagateCarries(evSeq, ctA, PropagateOptions{Flag: FlagCarry})
			require.NoError(t, err)
			outPar, flagPar, err := PropagateCarries(evPar, ctB, PropagateOptions{Flag: FlagCarry})
			require.NoError(t, err)

			for i := range outSeq.Blocks() {
				require.Equal(t,
					engineSeq.DecryptBlock(outSeq.Blocks()[i]),
					engineSeq.DecryptBlock(outPar.Blocks()[i]),
					"digit %d of %d", i, numBlocks)
			}
			require.Equal(t,
				engineSeq.DecryptBool(flagSeq),
				engineSeq.DecryptBool(flagPar),
				"carry-out flag, %d digits", numBlocks)
		}
	}
}

func TestPropagateWithCarryIn(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmSequential, AlgorithmParallelPrefix} {
		engine, ev := newSimEvaluator(t, algo)
		ct := engine.EncryptUint64(41, 4)
		carryIn := NewBooleanBlockUnchecked(engine.CreateTrivial(1))

		out, flag, err := PropagateCarries(ev, ct, PropagateOptions{CarryIn: carryIn})
		require.NoError(t, err)
		require.Nil(t, flag)
		require.Equal(t, uint64(42), engine.DecryptUint64(out))
	}
}

func TestPropagateCarryOutFlag(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmSequential, AlgorithmParallelPrefix} {
		engine, ev := newSimEvaluator(t, algo)

		// 2 digits: capacity 16. 15 + 1 wraps to 0 with a carry out.
		a := engine.EncryptUint64(15, 2)
		b := engine.EncryptUint64(1, 2)
		dirty, err := UncheckedAdd(ev, a, b)
		require.NoError(t, err)

		out, flag, err := PropagateCarries(ev, dirty, PropagateOptions{Flag: FlagOverflow})
		require.NoError(t, err)
		require.Equal(t, uint64(0), engine.DecryptUint64(out))
		require.True(t, engine.DecryptBool(flag))

		// 14 + 1 stays inside.
		a = engine.EncryptUint64(14, 2)
		b = engine.EncryptUint64(1, 2)
		dirty, err = UncheckedAdd(ev, a, b)
		require.NoError(t, err)

		out, flag, err = PropagateCarries(ev, dirty, PropagateOptions{Flag: FlagOverflow})
		require.NoError(t, err)
		require.Equal(t, uint64(15), engine.DecryptUint64(out))
		require.False(t, engine.DecryptBool(flag))
	}
}

func TestPropagateSignedOverflowRequiresOperands(t *testing.T) {
	engine, ev := newSimEvaluator(t, AlgorithmSequential)
	ct := engine.EncryptUint64(3, 2)
	require.Panics(t, func() {
		PropagateCarries(ev, ct, PropagateOptions{Flag: FlagSignedOverflow})
	})
}

func TestPropagateEmptyRadix(t *testing.T) {
	_, ev := newSimEvaluator(t, AlgorithmSequential)
	out, err := FullPropagate(ev, NewRadixCiphertext(nil))
	require.NoError(t, err)
	require.Equal(t, 0, out.NumBlocks())
}

// TestAutoAlgorithmSelection checks the heuristic: short radixes stay on
// the sequential chain, long ones with workers move to the prefix network.
func TestAutoAlgorithmSelection(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	serial := NewEvaluatorWithConfig(engine, Config{MaxWorkers: 1})
	ct := engine.EncryptUint64(100, 8)
	out, err := FullPropagate(serial, ct)
	require.NoError(t, err)
	require.Equal(t, uint64(100), engine.DecryptUint64(out))

	parallel := NewEvaluatorWithConfig(engine, Config{MaxWorkers: 8})
	out, err = FullPropagate(parallel, ct)
	require.NoError(t, err)
	require.Equal(t, uint64(100), engine.DecryptUint64(out))
}
