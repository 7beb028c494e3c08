// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"fmt"
	"sync"

	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// LatticeValue is the encrypted digit payload of the lattice engine: one
// LWE sample holding a value in [0, TotalModulus), encoded in the lower
// half of the torus so plain additions keep decoding correctly until the
// digit capacity is reached.
type LatticeValue struct {
	ct *rlwe.Ciphertext
}

// CopyPayload returns an independent deep copy.
func (v *LatticeValue) CopyPayload() Payload {
	return &LatticeValue{ct: v.ct.CopyNew()}
}

// LatticeEngine implements BlockEngine on luxfi/lattice programmable
// bootstrapping: plain additions are coefficient-wise ring operations,
// lookups are blind rotations against a test polynomial built from the
// lookup function. The engine holds only public key material and is safe
// for concurrent use; blind rotation evaluators are pooled because they
// carry scratch buffers.
type LatticeEngine struct {
	lp     LatticeParameters
	params Parameters
	space  uint64

	bsk      *BootstrapKey
	ringQLWE *ring.Ring
	ringQBR  *ring.Ring
	scaleLWE float64
	scaleBR  rlwe.Scale

	evalPool sync.Pool
}

// NewLatticeEngine creates an engine for the digit layout p over the given
// lattice parameters and bootstrap key.
func NewLatticeEngine(lp LatticeParameters, p Parameters, bsk *BootstrapKey) (*LatticeEngine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	space := p.TotalModulus()
	e := &LatticeEngine{
		lp:       lp,
		params:   p,
		space:    space,
		bsk:      bsk,
		ringQLWE: lp.paramsLWE.RingQ(),
		ringQBR:  lp.paramsBR.RingQ(),
		scaleLWE: float64(lp.QLWE()) / float64(2*space),
		scaleBR:  rlwe.NewScale(float64(lp.QBR()) / float64(2*space)),
	}
	e.evalPool.New = func() any {
		return blindrot.NewEvaluator(lp.paramsBR, lp.paramsLWE)
	}
	return e, nil
}

// Parameters returns the digit layout.
func (e *LatticeEngine) Parameters() Parameters { return e.params }

func (e *LatticeEngine) payload(b *Block) *LatticeValue {
	v, ok := b.Payload.(*LatticeValue)
	if !ok {
		panic("radix: block payload is not a lattice ciphertext")
	}
	return v
}

func (e *LatticeEngine) checkDegree(d Degree) {
	if uint64(d) >= e.space {
		panic("radix: digit degree exceeds capacity")
	}
}

// Add returns a + b without bootstrapping.
func (e *LatticeEngine) Add(a, b *Block) (*Block, error) {
	out := a.Copy()
	if err := e.AddAssign(out, b); err != nil {
		return nil, err
	}
	return out, nil
}

// AddAssign folds b into a without bootstrapping.
func (e *LatticeEngine) AddAssign(a, b *Block) error {
	e.checkDegree(a.Degree + b.Degree)
	av, bv := e.payload(a), e.payload(b)
	e.ringQLWE.Add(av.ct.Value[0], bv.ct.Value[0], av.ct.Value[0])
	e.ringQLWE.Add(av.ct.Value[1], bv.ct.Value[1], av.ct.Value[1])
	a.Degree += b.Degree
	return nil
}

// ScalarMul returns b * scalar without bootstrapping.
func (e *LatticeEngine) ScalarMul(b *Block, scalar uint64) (*Block, error) {
	d := b.Degree * Degree(scalar)
	e.checkDegree(d)
	out := b.Copy()
	ov := e.payload(out)
	e.ringQLWE.MulScalar(ov.ct.Value[0], scalar, ov.ct.Value[0])
	e.ringQLWE.MulScalar(ov.ct.Value[1], scalar, ov.ct.Value[1])
	out.Degree = d
	return out, nil
}

// MessageExtract bootstraps b into its message digit.
func (e *LatticeEngine) MessageExtract(b *Block) (*Block, error) {
	m := uint64(e.params.MessageModulus)
	outDeg := Degree(m - 1)
	if b.Degree < outDeg {
		outDeg = b.Degree
	}
	return e.ApplyLookup(b, func(v uint64) uint64 { return v % m }, outDeg)
}

// CarryExtract bootstraps b into its carry digit.
func (e *LatticeEngine) CarryExtract(b *Block) (*Block, error) {
	m := uint64(e.params.MessageModulus)
	return e.ApplyLookup(b, func(v uint64) uint64 { return v / m }, b.Degree/Degree(m))
}

// ApplyLookup bootstraps b through fn over the full digit domain.
func (e *LatticeEngine) ApplyLookup(b *Block, fn func(uint64) uint64, outDegree Degree) (*Block, error) {
	e.checkDegree(outDegree)
	testPoly := e.testPolynomial(fn)
	ct, err := e.bootstrap(e.payload(b).ct, &testPoly)
	if err != nil {
		return nil, err
	}
	return &Block{Payload: &LatticeValue{ct: ct}, Degree: outDegree}, nil
}

// ApplyBivariateLookup packs (a, b) into one digit by a plain shift-and-add
// and bootstraps the pair through fn.
func (e *LatticeEngine) ApplyBivariateLookup(a, b *Block, fn func(uint64, uint64) uint64, outDegree Degree) (*Block, error) {
	shift := uint64(b.Degree) + 1
	packed, err := e.ScalarMul(a, shift)
	if err != nil {
		return nil, fmt.Errorf("bivariate pack: %w", err)
	}
	if err := e.AddAssign(packed, b); err != nil {
		return nil, fmt.Errorf("bivariate pack: %w", err)
	}
	return e.ApplyLookup(packed, func(v uint64) uint64 {
		return fn(v/shift, v%shift)
	}, outDegree)
}

// CreateTrivial returns a noiseless digit encoding a public value.
func (e *LatticeEngine) CreateTrivial(value uint64) *Block {
	if value >= e.space {
		panic("radix: trivial value exceeds digit capacity")
	}
	ct := rlwe.NewCiphertext(e.lp.paramsLWE, 1, e.lp.paramsLWE.MaxLevel())
	ct.Value[0].Coeffs[0][0] = uint64(float64(value)*e.scaleLWE) % e.lp.QLWE()
	e.ringQLWE.NTT(ct.Value[0], ct.Value[0])
	ct.IsNTT = true
	return &Block{Payload: &LatticeValue{ct: ct}, Degree: Degree(value)}
}

// CompareBlock returns an encrypted equality bit for two clean digits.
func (e *LatticeEngine) CompareBlock(a, b *Block) (*Block, error) {
	if !a.MessageFits(e.params) || !b.MessageFits(e.params) {
		panic("radix: comparing digits with pending carries")
	}
	return e.ApplyBivariateLookup(a, b, func(x, y uint64) uint64 {
		if x == y {
			return 1
		}
		return 0
	}, 1)
}

// testPolynomial builds the blind rotation test polynomial evaluating fn
// over the digit domain. The normalized torus position x in [-1, 1] maps to
// a digit in [0, space); fn's output maps back the same way.
func (e *LatticeEngine) testPolynomial(fn func(uint64) uint64) ring.Poly {
	space := float64(e.space)
	return blindrot.InitTestPolynomial(func(x float64) float64 {
		v := int((x + 1) * space / 2)
		if v >= int(e.space) {
			v = int(e.space) - 1
		}
		if v < 0 {
			v = 0
		}
		r := fn(uint64(v)) % e.space
		return float64(r)*2/space - 1
	}, e.scaleBR, e.ringQBR, -1, 1)
}

// bootstrap evaluates one blind rotation and brings the result back to an
// LWE sample. No secret key is involved.
func (e *LatticeEngine) bootstrap(ct *rlwe.Ciphertext, testPoly *ring.Poly) (*rlwe.Ciphertext, error) {
	eval := e.evalPool.Get().(*blindrot.Evaluator)
	defer e.evalPool.Put(eval)

	results, err := eval.Evaluate(ct, map[int]*ring.Poly{0: testPoly}, e.bsk.BRK)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	ctBR, ok := results[0]
	if !ok {
		return nil, fmt.Errorf("bootstrap: no result for slot 0")
	}
	return e.sampleExtractAndModSwitch(ctBR)
}

// sampleExtractAndModSwitch converts a blind rotation output back to the
// LWE parameter set. With matching dimension and modulus (the recommended
// configuration) the ciphertext passes through unchanged.
func (e *LatticeEngine) sampleExtractAndModSwitch(ctBR *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if e.lp.N() == e.lp.NBR() && e.lp.QLWE() == e.lp.QBR() {
		return ctBR.CopyNew(), nil
	}

	ringQBR := e.ringQBR.AtLevel(ctBR.Level())
	qBR := e.lp.QBR()
	qLWE := e.lp.QLWE()

	c0 := ctBR.Value[0].CopyNew()
	c1 := ctBR.Value[1].CopyNew()
	if ctBR.IsNTT {
		ringQBR.INTT(*c0, *c0)
		ringQBR.INTT(*c1, *c1)
	}

	nLWE := e.lp.N()
	ctLWE := rlwe.NewCiphertext(e.lp.paramsLWE, 1, e.lp.paramsLWE.MaxLevel())
	scaleFactor := float64(qLWE) / float64(qBR)
	for i := 0; i < nLWE; i++ {
		ctLWE.Value[0].Coeffs[0][i] = uint64(float64(c0.Coeffs[0][i])*scaleFactor+0.5) % qLWE
		ctLWE.Value[1].Coeffs[0][i] = uint64(float64(c1.Coeffs[0][i])*scaleFactor+0.5) % qLWE
	}

	ringQLWE := e.ringQLWE.AtLevel(e.lp.paramsLWE.MaxLevel())
	ringQLWE.NTT(ctLWE.Value[0], ctLWE.Value[0])
	ringQLWE.NTT(ctLWE.Value[1], ctLWE.Value[1])
	ctLWE.IsNTT = true
	return ctLWE, nil
}
