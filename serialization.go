// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
)

// ========== Secret Key Serialization ==========

// MarshalBinary serializes the secret key to binary format.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(sk.SKLWE); err != nil {
		return nil, fmt.Errorf("serialize SKLWE: %w", err)
	}
	if err := enc.Encode(sk.SKBR); err != nil {
		return nil, fmt.Errorf("serialize SKBR: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the secret key from binary format.
func (sk *SecretKey) UnmarshalBinary(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var sklwe, skbr rlwe.SecretKey
	if err := dec.Decode(&sklwe); err != nil {
		return fmt.Errorf("deserialize SKLWE: %w", err)
	}
	if err := dec.Decode(&skbr); err != nil {
		return fmt.Errorf("deserialize SKBR: %w", err)
	}
	sk.SKLWE = &sklwe
	sk.SKBR = &skbr
	return nil
}

// ========== Public Key Serialization ==========

// MarshalBinary serializes the public key to binary format.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(pk.PKLWE); err != nil {
		return nil, fmt.Errorf("serialize PKLWE: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the public key from binary format.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var pklwe rlwe.PublicKey
	if err := dec.Decode(&pklwe); err != nil {
		return fmt.Errorf("deserialize PKLWE: %w", err)
	}
	pk.PKLWE = &pklwe
	return nil
}

// ========== Bootstrap Key Serialization ==========

// MarshalBinary serializes the bootstrap key to binary format. The blind
// rotation key set is stored as its in-memory concrete type, which keeps gob
// away from interface registration.
func (bsk *BootstrapKey) MarshalBinary() ([]byte, error) {
	brk, ok := bsk.BRK.(blindrot.MemBlindRotationEvaluationKeySet)
	if !ok {
		return nil, fmt.Errorf("serialize BRK: unsupported key set %T", bsk.BRK)
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(brk); err != nil {
		return nil, fmt.Errorf("serialize BRK: %w", err)
	}
	hasKSK := uint8(0)
	if bsk.KSK != nil {
		hasKSK = 1
	}
	if err := binary.Write(&buf, binary.LittleEndian, hasKSK); err != nil {
		return nil, err
	}
	if bsk.KSK != nil {
		enc := gob.NewEncoder(&buf)
		if err := enc.Encode(bsk.KSK); err != nil {
			return nil, fmt.Errorf("serialize KSK: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the bootstrap key from binary format.
func (bsk *BootstrapKey) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)
	dec := gob.NewDecoder(buf)
	var brk blindrot.MemBlindRotationEvaluationKeySet
	if err := dec.Decode(&brk); err != nil {
		return fmt.Errorf("deserialize BRK: %w", err)
	}
	bsk.BRK = brk
	var hasKSK uint8
	if err := binary.Read(buf, binary.LittleEndian, &hasKSK); err != nil {
		return err
	}
	if hasKSK != 0 {
		dec := gob.NewDecoder(buf)
		var ksk rlwe.EvaluationKey
		if err := dec.Decode(&ksk); err != nil {
			return fmt.Errorf("deserialize KSK: %w", err)
		}
		bsk.KSK = &ksk
	}
	return nil
}

// ========== Block Serialization ==========

// Payload kind tags for block serialization.
const (
	payloadSim     uint8 = 0
	payloadLattice uint8 = 1
)

// MarshalBinary serializes a digit: its degree, a payload kind tag and the
// payload bytes.
func (b *Block) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint64(b.Degree)); err != nil {
		return nil, err
	}
	switch p := b.Payload.(type) {
	case SimValue:
		if err := binary.Write(&buf, binary.LittleEndian, payloadSim); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint64(p)); err != nil {
			return nil, err
		}
	case *LatticeValue:
		if err := binary.Write(&buf, binary.LittleEndian, payloadLattice); err != nil {
			return nil, err
		}
		enc := gob.NewEncoder(&buf)
		if err := enc.Encode(p.ct); err != nil {
			return nil, fmt.Errorf("serialize digit: %w", err)
		}
	default:
		return nil, fmt.Errorf("serialize digit: unsupported payload %T", b.Payload)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a digit.
func (b *Block) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)
	var degree uint64
	if err := binary.Read(buf, binary.LittleEndian, &degree); err != nil {
		return err
	}
	b.Degree = Degree(degree)
	var kind uint8
	if err := binary.Read(buf, binary.LittleEndian, &kind); err != nil {
		return err
	}
	switch kind {
	case payloadSim:
		var v uint64
		if err := binary.Read(buf, binary.LittleEndian, &v); err != nil {
			return err
		}
		b.Payload = SimValue(v)
	case payloadLattice:
		dec := gob.NewDecoder(buf)
		ct := new(rlwe.Ciphertext)
		if err := dec.Decode(ct); err != nil {
			return fmt.Errorf("deserialize digit: %w", err)
		}
		b.Payload = &LatticeValue{ct: ct}
	default:
		return fmt.Errorf("deserialize digit: unknown payload kind %d", kind)
	}
	return nil
}

// ========== Radix Ciphertext Serialization ==========

func marshalBlocks(blocks []*Block) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(blocks))); err != nil {
		return nil, err
	}
	for i, b := range blocks {
		data, err := b.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("digit %d: %w", i, err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(data))); err != nil {
			return nil, err
		}
		if _, err := buf.Write(data); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func unmarshalBlocks(data []byte) ([]*Block, error) {
	buf := bytes.NewReader(data)
	var n uint32
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	// Every digit carries at least its 4-byte length prefix; a count the
	// payload cannot hold is rejected before it sizes the allocation.
	if int64(n)*4 > int64(buf.Len()) {
		return nil, fmt.Errorf("radix: digit count %d exceeds payload size %d", n, buf.Len())
	}
	blocks := make([]*Block, n)
	for i := range blocks {
		var size uint32
		if err := binary.Read(buf, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		raw := make([]byte, size)
		if _, err := io.ReadFull(buf, raw); err != nil {
			return nil, err
		}
		blocks[i] = new(Block)
		if err := blocks[i].UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("digit %d: %w", i, err)
		}
	}
	return blocks, nil
}

// MarshalBinary serializes an unsigned radix ciphertext.
func (ct *RadixCiphertext) MarshalBinary() ([]byte, error) {
	return marshalBlocks(ct.blocks)
}

// UnmarshalBinary deserializes an unsigned radix ciphertext.
func (ct *RadixCiphertext) UnmarshalBinary(data []byte) error {
	blocks, err := unmarshalBlocks(data)
	if err != nil {
		return err
	}
	ct.blocks = blocks
	return nil
}

// MarshalBinary serializes a signed radix ciphertext.
func (ct *SignedRadixCiphertext) MarshalBinary() ([]byte, error) {
	return marshalBlocks(ct.blocks)
}

// UnmarshalBinary deserializes a signed radix ciphertext.
func (ct *SignedRadixCiphertext) UnmarshalBinary(data []byte) error {
	blocks, err := unmarshalBlocks(data)
	if err != nil {
		return err
	}
	ct.blocks = blocks
	return nil
}

// MarshalBinary serializes an encrypted boolean.
func (bb *BooleanBlock) MarshalBinary() ([]byte, error) {
	return bb.Block().MarshalBinary()
}

// UnmarshalBinary deserializes an encrypted boolean.
func (bb *BooleanBlock) UnmarshalBinary(data []byte) error {
	b := new(Block)
	if err := b.UnmarshalBinary(data); err != nil {
		return err
	}
	*bb = *NewBooleanBlockUnchecked(b)
	return nil
}
