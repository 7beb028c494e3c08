// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/utils"
)

// LatticeParameters defines the lattice parameter set backing the
// LatticeEngine: one RLWE parameter set for LWE samples (encrypted digits)
// and one for blind rotation (programmable bootstrapping).
type LatticeParameters struct {
	paramsLWE rlwe.Parameters
	paramsBR  rlwe.Parameters
	evkParams rlwe.EvaluationKeyParameters
}

// LatticeParametersLiteral is a user-friendly parameter specification.
type LatticeParametersLiteral struct {
	// LogNLWE is log2 of the LWE dimension.
	LogNLWE int
	// LogNBR is log2 of the blind rotation dimension.
	LogNBR int
	// QLWE is the LWE modulus.
	QLWE uint64
	// QBR is the blind rotation modulus.
	QBR uint64
	// BaseTwoDecomposition for key switching.
	BaseTwoDecomposition int
}

// Standard parameter sets.
var (
	// PN11QP54 provides ~128-bit security with enough precision for a
	// 4-bit digit domain (2-bit message, 2-bit carry). Same dimension and
	// modulus for LWE and BR, which avoids key switching entirely.
	// N=2048, Q=~2^54.
	PN11QP54 = LatticeParametersLiteral{
		LogNLWE:              11,
		LogNBR:               11,
		QLWE:                 0x3ffffffffed001,
		QBR:                  0x3ffffffffed001,
		BaseTwoDecomposition: 10,
	}

	// PN10QP27 trades precision for speed. N=1024, Q=~2^27.
	PN10QP27 = LatticeParametersLiteral{
		LogNLWE:              10,
		LogNBR:               10,
		QLWE:                 0x7fff801,
		QBR:                  0x7fff801,
		BaseTwoDecomposition: 7,
	}
)

// NewLatticeParametersFromLiteral creates LatticeParameters from a literal
// specification.
func NewLatticeParametersFromLiteral(lit LatticeParametersLiteral) (params LatticeParameters, err error) {
	params.paramsLWE, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogNLWE,
		Q:       []uint64{lit.QLWE},
		NTTFlag: true,
	})
	if err != nil {
		return
	}

	params.paramsBR, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogNBR,
		Q:       []uint64{lit.QBR},
		NTTFlag: true,
	})
	if err != nil {
		return
	}

	params.evkParams = rlwe.EvaluationKeyParameters{
		BaseTwoDecomposition: utils.Pointy(lit.BaseTwoDecomposition),
	}

	return
}

// N returns the LWE dimension.
func (p LatticeParameters) N() int {
	return p.paramsLWE.N()
}

// NBR returns the blind rotation dimension.
func (p LatticeParameters) NBR() int {
	return p.paramsBR.N()
}

// QLWE returns the LWE modulus.
func (p LatticeParameters) QLWE() uint64 {
	return p.paramsLWE.Q()[0]
}

// QBR returns the blind rotation modulus.
func (p LatticeParameters) QBR() uint64 {
	return p.paramsBR.Q()[0]
}

// SecretKey contains the LWE and RLWE secret keys.
type SecretKey struct {
	// SKLWE is the LWE secret key for encrypting digits.
	SKLWE *rlwe.SecretKey
	// SKBR is the RLWE secret key for blind rotation results.
	SKBR *rlwe.SecretKey
}

// PublicKey contains the LWE public key, which lets users encrypt digits
// without holding the secret key.
type PublicKey struct {
	PKLWE *rlwe.PublicKey
}

// BootstrapKey contains the public material an engine needs to bootstrap:
// the blind rotation key and, when dimensions differ, a key switching key.
type BootstrapKey struct {
	// BRK is the blind rotation key (RGSW encryptions of the LWE secret
	// key bits).
	BRK blindrot.BlindRotationEvaluationKeySet
	// KSK switches from SKBR back to SKLWE after sample extraction. Nil
	// when LWE and BR share the same key.
	KSK *rlwe.EvaluationKey

	params LatticeParameters
}

// KeyGenerator generates secret, public and bootstrap keys.
type KeyGenerator struct {
	params  LatticeParameters
	kgenLWE *rlwe.KeyGenerator
	kgenBR  *rlwe.KeyGenerator
}

// NewKeyGenerator creates a key generator for the given parameters.
func NewKeyGenerator(params LatticeParameters) *KeyGenerator {
	return &KeyGenerator{
		params:  params,
		kgenLWE: rlwe.NewKeyGenerator(params.paramsLWE),
		kgenBR:  rlwe.NewKeyGenerator(params.paramsBR),
	}
}

// GenSecretKey generates a new secret key pair. When LWE and BR share one
// dimension the same key serves both, which eliminates key switching.
func (kg *KeyGenerator) GenSecretKey() *SecretKey {
	if kg.params.N() == kg.params.NBR() {
		sk := kg.kgenBR.GenSecretKeyNew()
		return &SecretKey{SKLWE: sk, SKBR: sk}
	}
	return &SecretKey{
		SKLWE: kg.kgenLWE.GenSecretKeyNew(),
		SKBR:  kg.kgenBR.GenSecretKeyNew(),
	}
}

// GenPublicKey generates a public key from a secret key.
func (kg *KeyGenerator) GenPublicKey(sk *SecretKey) *PublicKey {
	return &PublicKey{PKLWE: kg.kgenLWE.GenPublicKeyNew(sk.SKLWE)}
}

// GenKeyPair generates a secret key and its public key.
func (kg *KeyGenerator) GenKeyPair() (*SecretKey, *PublicKey) {
	sk := kg.GenSecretKey()
	return sk, kg.GenPublicKey(sk)
}

// GenBootstrapKey generates the bootstrap key for a secret key.
func (kg *KeyGenerator) GenBootstrapKey(sk *SecretKey) *BootstrapKey {
	brk := blindrot.GenEvaluationKeyNew(kg.params.paramsBR, sk.SKBR, kg.params.paramsLWE, sk.SKLWE, kg.params.evkParams)

	var ksk *rlwe.EvaluationKey
	if kg.params.N() != kg.params.NBR() {
		ksk = kg.kgenBR.GenEvaluationKeyNew(sk.SKBR, sk.SKLWE, kg.params.evkParams)
	}

	return &BootstrapKey{
		BRK:    brk,
		KSK:    ksk,
		params: kg.params,
	}
}
