// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimEncryptDecryptRoundtrip(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	for _, v := range []uint64{0, 1, 42, 255, 256, 1 << 20} {
		require.Equal(t, v, engine.DecryptUint64(engine.EncryptUint64(v, 16)))
	}
	for _, v := range []int64{0, -1, 1, -128, 127, -1 << 20} {
		require.Equal(t, v, engine.DecryptInt64(engine.EncryptInt64(v, 16)))
	}
}

func TestSimFreshDigitDegrees(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	ct := engine.EncryptUint64(5, 3)
	require.True(t, ct.CarriesAreEmpty(DefaultParameters))
	for _, b := range ct.Blocks() {
		require.Equal(t, Degree(DefaultParameters.MessageModulus-1), b.Degree)
	}
}

func TestSimDegreeTracking(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	a := engine.CreateTrivial(7)
	require.Equal(t, Degree(7), a.Degree)

	sum, err := engine.Add(a, engine.CreateTrivial(5))
	require.NoError(t, err)
	require.Equal(t, Degree(12), sum.Degree)
	require.Equal(t, uint64(12), engine.DecryptBlock(sum))

	msg, err := engine.MessageExtract(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(0), engine.DecryptBlock(msg))
	require.Equal(t, Degree(3), msg.Degree)

	carry, err := engine.CarryExtract(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(3), engine.DecryptBlock(carry))
	require.Equal(t, Degree(3), carry.Degree)
}

func TestSimPanicsOnCapacityViolations(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	big := engine.CreateTrivial(10)
	require.Panics(t, func() { engine.Add(big, big) }, "plain add past capacity")
	require.Panics(t, func() { engine.ScalarMul(big, 2) }, "scalar mul past capacity")
	require.Panics(t, func() { engine.CreateTrivial(16) }, "trivial past capacity")

	dirty := engine.CreateTrivial(5)
	clean := engine.CreateTrivial(1)
	require.Panics(t, func() { engine.CompareBlock(dirty, clean) }, "comparing dirty digits")

	// Bivariate packing: a*(deg(b)+1)+b must stay below the capacity.
	a := engine.CreateTrivial(4)
	b := engine.CreateTrivial(3)
	require.Panics(t, func() {
		engine.ApplyBivariateLookup(a, b, func(x, y uint64) uint64 { return 0 }, 1)
	})

	// Declared output degree is a hard contract.
	require.Panics(t, func() {
		engine.ApplyLookup(a, func(v uint64) uint64 { return v + 5 }, 1)
	})
}

func TestSimRejectsForeignPayload(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	foreign := &Block{Payload: nil, Degree: 1}
	require.Panics(t, func() { engine.MessageExtract(foreign) })
}

func TestSimCounters(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	a := engine.CreateTrivial(3)
	b := engine.CreateTrivial(3)
	_, err = engine.Add(a, b)
	require.NoError(t, err)
	_, err = engine.MessageExtract(a)
	require.NoError(t, err)
	_, err = engine.ApplyLookup(a, func(v uint64) uint64 { return 0 }, 0)
	require.NoError(t, err)

	c := engine.Counters()
	require.Equal(t, uint64(1), c.PlainAdds)
	require.Equal(t, uint64(2), c.Bootstraps)

	engine.ResetCounters()
	require.Equal(t, SimCounters{}, engine.Counters())
}

func TestSimRejectsInvalidParameters(t *testing.T) {
	_, err := NewSimEngine(Parameters{MessageModulus: 2, CarryModulus: 2})
	require.Error(t, err)
}
