// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLatticeParametersFromLiteral(t *testing.T) {
	lp, err := NewLatticeParametersFromLiteral(PN10QP27)
	require.NoError(t, err)
	require.Equal(t, 1024, lp.N())
	require.Equal(t, 1024, lp.NBR())
	require.Equal(t, uint64(0x7fff801), lp.QLWE())
	require.Equal(t, lp.QLWE(), lp.QBR())

	lp, err = NewLatticeParametersFromLiteral(PN11QP54)
	require.NoError(t, err)
	require.Equal(t, 2048, lp.N())
}

func TestLatticeKeyGenSharedDimension(t *testing.T) {
	lp, err := NewLatticeParametersFromLiteral(PN10QP27)
	require.NoError(t, err)

	kg := NewKeyGenerator(lp)
	sk, pk := kg.GenKeyPair()
	require.NotNil(t, pk.PKLWE)
	// One dimension, one key: blind rotation results decrypt under the LWE
	// key directly and no switching key is needed.
	require.Same(t, sk.SKLWE, sk.SKBR)

	bsk := kg.GenBootstrapKey(sk)
	require.NotNil(t, bsk.BRK)
	require.Nil(t, bsk.KSK)
}

func newLatticeTestKit(t *testing.T) (*LatticeEngine, *LatticeEncryptor, *LatticeDecryptor) {
	t.Helper()
	lp, err := NewLatticeParametersFromLiteral(PN10QP27)
	require.NoError(t, err)

	kg := NewKeyGenerator(lp)
	sk := kg.GenSecretKey()
	bsk := kg.GenBootstrapKey(sk)

	engine, err := NewLatticeEngine(lp, DefaultParameters, bsk)
	require.NoError(t, err)
	return engine,
		NewLatticeEncryptor(lp, DefaultParameters, sk.SKLWE),
		NewLatticeDecryptor(lp, DefaultParameters, sk)
}

func TestLatticeEncryptDecryptRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("lattice key generation is slow")
	}
	_, enc, dec := newLatticeTestKit(t)

	for _, v := range []uint64{0, 1, 2, 3} {
		b, err := enc.EncryptDigit(v)
		require.NoError(t, err)
		require.Equal(t, v, dec.DecryptDigit(b))
	}
	_, err := enc.EncryptDigit(4)
	require.Error(t, err, "digit must fit the message space")

	ct, err := enc.EncryptUint64(201, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(201), dec.DecryptUint64(ct))

	sct, err := enc.EncryptInt64(-101, 4)
	require.NoError(t, err)
	require.Equal(t, int64(-101), dec.DecryptInt64(sct))

	bb, err := enc.EncryptBool(true)
	require.NoError(t, err)
	require.True(t, dec.DecryptBool(bb))
}

func TestLatticePlainOps(t *testing.T) {
	if testing.Short() {
		t.Skip("lattice key generation is slow")
	}
	engine, enc, dec := newLatticeTestKit(t)

	a, err := enc.EncryptDigit(2)
	require.NoError(t, err)
	b, err := enc.EncryptDigit(3)
	require.NoError(t, err)

	sum, err := engine.Add(a, b)
	require.NoError(t, err)
	require.Equal(t, uint64(5), dec.DecryptDigit(sum))
	require.Equal(t, Degree(6), sum.Degree)

	doubled, err := engine.ScalarMul(b, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(6), dec.DecryptDigit(doubled))

	trivial := engine.CreateTrivial(7)
	require.Equal(t, uint64(7), dec.DecryptDigit(trivial))

	withTrivial, err := engine.Add(b, trivial)
	require.NoError(t, err)
	require.Equal(t, uint64(10), dec.DecryptDigit(withTrivial))
}

func TestLatticeBootstrapExtraction(t *testing.T) {
	if testing.Short() {
		t.Skip("bootstrapping is slow")
	}
	engine, enc, dec := newLatticeTestKit(t)

	a, err := enc.EncryptDigit(3)
	require.NoError(t, err)
	b, err := enc.EncryptDigit(3)
	require.NoError(t, err)
	sum, err := engine.Add(a, b)
	require.NoError(t, err)

	msg, err := engine.MessageExtract(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(2), dec.DecryptDigit(msg))

	carry, err := engine.CarryExtract(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(1), dec.DecryptDigit(carry))

	eqBit, err := engine.CompareBlock(msg, carry)
	require.NoError(t, err)
	require.Equal(t, uint64(0), dec.DecryptDigit(eqBit))
}

func TestLatticeEvaluatorAdd(t *testing.T) {
	if testing.Short() {
		t.Skip("bootstrapping is slow")
	}
	engine, enc, dec := newLatticeTestKit(t)
	ev := NewEvaluator(engine)

	a, err := enc.EncryptUint64(11, 2)
	require.NoError(t, err)
	b, err := enc.EncryptUint64(7, 2)
	require.NoError(t, err)

	out, err := Add(ev, a, b)
	require.NoError(t, err)
	require.Equal(t, uint64(2), dec.DecryptUint64(out), "11 + 7 wraps a 2-digit radix")
}
