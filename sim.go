// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"fmt"
	"sync/atomic"
)

// SimValue is the payload of a simulated digit: the plaintext itself,
// reduced modulo the digit's total capacity exactly as the encrypted value
// would wrap.
type SimValue uint64

// CopyPayload implements Payload.
func (v SimValue) CopyPayload() Payload { return v }

// SimCounters is a snapshot of the work a SimEngine has performed. Plain
// additions are free in the real scheme; bootstraps (extractions and lookup
// evaluations) are the expensive operations every algorithm here tries to
// minimize, so tests and the profiler meter them.
type SimCounters struct {
	PlainAdds  uint64
	Bootstraps uint64
}

// SimEngine is a cleartext model of the block engine: values are stored in
// the clear but wrap, saturate and track degrees exactly like the encrypted
// digits would. It validates the degree bookkeeping of the algorithm layer
// (out-of-contract use panics instead of silently corrupting values) and
// meters bootstrap counts. It is the test vehicle for everything that does
// not need real ciphertexts.
type SimEngine struct {
	params Parameters

	plainAdds  atomic.Uint64
	bootstraps atomic.Uint64
}

// NewSimEngine creates a simulation engine for the given digit layout.
func NewSimEngine(params Parameters) (*SimEngine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("sim engine: %w", err)
	}
	return &SimEngine{params: params}, nil
}

// Parameters implements BlockEngine.
func (e *SimEngine) Parameters() Parameters { return e.params }

// Counters returns a snapshot of the operation counters.
func (e *SimEngine) Counters() SimCounters {
	return SimCounters{
		PlainAdds:  e.plainAdds.Load(),
		Bootstraps: e.bootstraps.Load(),
	}
}

// ResetCounters zeroes the operation counters.
func (e *SimEngine) ResetCounters() {
	e.plainAdds.Store(0)
	e.bootstraps.Store(0)
}

func (e *SimEngine) value(b *Block) uint64 {
	v, ok := b.Payload.(SimValue)
	if !ok {
		panic("radix: sim engine fed a block from another engine")
	}
	return uint64(v)
}

func (e *SimEngine) checkDegree(b *Block) {
	if uint64(b.Degree) >= e.params.TotalModulus() {
		panic(fmt.Sprintf("radix: block degree %d exceeds digit capacity %d", b.Degree, e.params.TotalModulus()))
	}
	if e.value(b) > uint64(b.Degree) {
		panic(fmt.Sprintf("radix: block value %d above its degree bound %d", e.value(b), b.Degree))
	}
}

// Add implements BlockEngine.
func (e *SimEngine) Add(a, b *Block) (*Block, error) {
	out := a.Copy()
	if err := e.AddAssign(out, b); err != nil {
		return nil, err
	}
	return out, nil
}

// AddAssign implements BlockEngine.
func (e *SimEngine) AddAssign(a, b *Block) error {
	sum := uint64(a.Degree) + uint64(b.Degree)
	if sum >= e.params.TotalModulus() {
		panic(fmt.Sprintf("radix: plain add degree %d exceeds digit capacity %d", sum, e.params.TotalModulus()))
	}
	e.plainAdds.Add(1)
	a.Payload = SimValue(e.value(a) + e.value(b))
	a.Degree = Degree(sum)
	e.checkDegree(a)
	return nil
}

// ScalarMul implements BlockEngine.
func (e *SimEngine) ScalarMul(b *Block, scalar uint64) (*Block, error) {
	d := uint64(b.Degree) * scalar
	if d >= e.params.TotalModulus() {
		panic(fmt.Sprintf("radix: scalar mul degree %d exceeds digit capacity %d", d, e.params.TotalModulus()))
	}
	e.plainAdds.Add(1)
	return &Block{Payload: SimValue(e.value(b) * scalar), Degree: Degree(d)}, nil
}

// MessageExtract implements BlockEngine.
func (e *SimEngine) MessageExtract(b *Block) (*Block, error) {
	e.checkDegree(b)
	e.bootstraps.Add(1)
	d := b.Degree
	if uint64(d) > e.params.MessageModulus-1 {
		d = Degree(e.params.MessageModulus - 1)
	}
	return &Block{Payload: SimValue(e.value(b) % e.params.MessageModulus), Degree: d}, nil
}

// CarryExtract implements BlockEngine.
func (e *SimEngine) CarryExtract(b *Block) (*Block, error) {
	e.checkDegree(b)
	e.bootstraps.Add(1)
	return &Block{
		Payload: SimValue(e.value(b) / e.params.MessageModulus),
		Degree:  Degree(uint64(b.Degree) / e.params.MessageModulus),
	}, nil
}

// ApplyLookup implements BlockEngine.
func (e *SimEngine) ApplyLookup(b *Block, fn func(uint64) uint64, outDegree Degree) (*Block, error) {
	e.checkDegree(b)
	e.bootstraps.Add(1)
	out := fn(e.value(b))
	if out > uint64(outDegree) {
		panic(fmt.Sprintf("radix: lookup output %d above declared degree %d", out, outDegree))
	}
	return &Block{Payload: SimValue(out), Degree: outDegree}, nil
}

// ApplyBivariateLookup implements BlockEngine.
func (e *SimEngine) ApplyBivariateLookup(a, b *Block, fn func(uint64, uint64) uint64, outDegree Degree) (*Block, error) {
	e.checkDegree(a)
	e.checkDegree(b)
	// The packed operand a*(deg(b)+1) + b must fit one digit.
	packed := uint64(a.Degree)*(uint64(b.Degree)+1) + uint64(b.Degree)
	if packed >= e.params.TotalModulus() {
		panic(fmt.Sprintf("radix: bivariate operands pack to degree %d, capacity %d", packed, e.params.TotalModulus()))
	}
	e.bootstraps.Add(1)
	out := fn(e.value(a), e.value(b))
	if out > uint64(outDegree) {
		panic(fmt.Sprintf("radix: bivariate lookup output %d above declared degree %d", out, outDegree))
	}
	return &Block{Payload: SimValue(out), Degree: outDegree}, nil
}

// CreateTrivial implements BlockEngine.
func (e *SimEngine) CreateTrivial(value uint64) *Block {
	if value >= e.params.TotalModulus() {
		panic(fmt.Sprintf("radix: trivial value %d exceeds digit capacity %d", value, e.params.TotalModulus()))
	}
	return &Block{Payload: SimValue(value), Degree: Degree(value)}
}

// CompareBlock implements BlockEngine.
func (e *SimEngine) CompareBlock(a, b *Block) (*Block, error) {
	if !a.MessageFits(e.params) || !b.MessageFits(e.params) {
		panic("radix: comparing digits with unpropagated carries")
	}
	e.bootstraps.Add(1)
	out := uint64(0)
	if e.value(a) == e.value(b) {
		out = 1
	}
	return &Block{Payload: SimValue(out), Degree: 1}, nil
}

// EncryptUint64 encodes a value as a fresh clean radix ciphertext of the
// given length. Simulated encryption: digits hold the plaintext.
func (e *SimEngine) EncryptUint64(value uint64, numBlocks int) *RadixCiphertext {
	return &RadixCiphertext{blocks: e.encodeBlocks(value, numBlocks)}
}

// EncryptInt64 encodes a signed value in two's complement.
func (e *SimEngine) EncryptInt64(value int64, numBlocks int) *SignedRadixCiphertext {
	return &SignedRadixCiphertext{blocks: e.encodeBlocks(uint64(value), numBlocks)}
}

func (e *SimEngine) encodeBlocks(value uint64, numBlocks int) []*Block {
	m := e.params.MessageModulus
	blocks := make([]*Block, numBlocks)
	for i := range blocks {
		blocks[i] = &Block{
			Payload: SimValue(value % m),
			Degree:  Degree(m - 1),
		}
		value /= m
	}
	return blocks
}

// DecryptUint64 decodes a clean unsigned radix ciphertext.
func (e *SimEngine) DecryptUint64(ct *RadixCiphertext) uint64 {
	m := e.params.MessageModulus
	var out uint64
	for i := len(ct.blocks) - 1; i >= 0; i-- {
		out = out*m + e.value(ct.blocks[i])%m
	}
	return out
}

// DecryptInt64 decodes a clean signed radix ciphertext from two's complement.
func (e *SimEngine) DecryptInt64(ct *SignedRadixCiphertext) int64 {
	m := e.params.MessageModulus
	var out, modulus uint64
	modulus = 1
	for i := len(ct.blocks) - 1; i >= 0; i-- {
		out = out*m + e.value(ct.blocks[i])%m
	}
	for range ct.blocks {
		modulus *= m
	}
	if out >= modulus/2 {
		return int64(out) - int64(modulus)
	}
	return int64(out)
}

// DecryptBool decodes a boolean block.
func (e *SimEngine) DecryptBool(bb *BooleanBlock) bool {
	return e.value(bb.Block())%e.params.TotalModulus() != 0
}

// DecryptBlock decodes one digit without cleaning its carries, mainly for
// inspecting dirty intermediates in tests.
func (e *SimEngine) DecryptBlock(b *Block) uint64 {
	return e.value(b)
}
