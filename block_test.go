// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParametersValidate(t *testing.T) {
	require.NoError(t, DefaultParameters.Validate())
	require.NoError(t, Parameters{MessageModulus: 8, CarryModulus: 8}.Validate())

	for _, p := range []Parameters{
		{MessageModulus: 0, CarryModulus: 0},
		{MessageModulus: 2, CarryModulus: 2},
		{MessageModulus: 3, CarryModulus: 3},
		{MessageModulus: 4, CarryModulus: 8},
		{MessageModulus: 8, CarryModulus: 4},
		{MessageModulus: 6, CarryModulus: 6},
	} {
		require.Error(t, p.Validate(), "%+v", p)
	}
}

func TestParametersDerived(t *testing.T) {
	p := DefaultParameters
	require.Equal(t, uint64(16), p.TotalModulus())
	require.Equal(t, Degree(12), p.MaxDegree())
	require.Equal(t, 4, p.MaxSumSize(3))
	require.Equal(t, 12, p.MaxSumSize(1))
	require.Panics(t, func() { p.MaxSumSize(0) })

	wide := Parameters{MessageModulus: 8, CarryModulus: 8}
	require.Equal(t, uint64(64), wide.TotalModulus())
	require.Equal(t, Degree(56), wide.MaxDegree())
	require.Equal(t, 8, wide.MaxSumSize(7))
}

func TestBlockMessageFits(t *testing.T) {
	p := DefaultParameters
	require.True(t, (&Block{Degree: 0}).MessageFits(p))
	require.True(t, (&Block{Degree: 3}).MessageFits(p))
	require.False(t, (&Block{Degree: 4}).MessageFits(p))
	require.False(t, (&Block{Degree: 15}).MessageFits(p))
}

func TestBlockCopyIsDeep(t *testing.T) {
	b := &Block{Payload: SimValue(7), Degree: 9}
	c := b.Copy()
	c.Payload = SimValue(1)
	c.Degree = 1
	require.Equal(t, SimValue(7), b.Payload)
	require.Equal(t, Degree(9), b.Degree)
}

func TestBlockSerializationSim(t *testing.T) {
	b := &Block{Payload: SimValue(11), Degree: 13}
	data, err := b.MarshalBinary()
	require.NoError(t, err)

	var got Block
	require.NoError(t, got.UnmarshalBinary(data))
	require.Equal(t, Degree(13), got.Degree)
	require.Equal(t, SimValue(11), got.Payload)
}

func TestRadixCiphertextSerialization(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	ct := engine.EncryptUint64(20260829, 16)
	data, err := ct.MarshalBinary()
	require.NoError(t, err)

	var got RadixCiphertext
	require.NoError(t, got.UnmarshalBinary(data))
	require.Equal(t, uint64(20260829), engine.DecryptUint64(&got))

	sct := engine.EncryptInt64(-31337, 16)
	data, err = sct.MarshalBinary()
	require.NoError(t, err)

	var sgot SignedRadixCiphertext
	require.NoError(t, sgot.UnmarshalBinary(data))
	require.Equal(t, int64(-31337), engine.DecryptInt64(&sgot))
}

func TestBooleanBlockSerialization(t *testing.T) {
	engine, err := NewSimEngine(DefaultParameters)
	require.NoError(t, err)

	bb := NewBooleanBlockUnchecked(engine.CreateTrivial(1))
	data, err := bb.MarshalBinary()
	require.NoError(t, err)

	var got BooleanBlock
	require.NoError(t, got.UnmarshalBinary(data))
	require.True(t, engine.DecryptBool(&got))
}

func TestBlockUnmarshalRejectsGarbage(t *testing.T) {
	var b Block
	require.Error(t, b.UnmarshalBinary(nil))
	require.Error(t, b.UnmarshalBinary([]byte{1, 2, 3}))

	var ct RadixCiphertext
	require.Error(t, ct.UnmarshalBinary([]byte{0xff}))
}

// TestUnmarshalBlocksRejectsOversizedCount feeds headers whose digit count
// cannot fit the payload; they must error out before sizing an allocation.
func TestUnmarshalBlocksRejectsOversizedCount(t *testing.T) {
	var ct RadixCiphertext
	require.Error(t, ct.UnmarshalBinary([]byte{0xff, 0xff, 0xff, 0xff}))
	require.Error(t, ct.UnmarshalBinary([]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}))

	var signed SignedRadixCiphertext
	require.Error(t, signed.UnmarshalBinary([]byte{0xff, 0xff, 0xff, 0xff}))
}
