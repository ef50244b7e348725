package types

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(keySize int) *QuantumIdentity {
	var owner PublicKey
	for i := range owner {
		owner[i] = byte(i + 1)
	}
	return &QuantumIdentity{
		Owner:           owner,
		Bump:            DefaultBump,
		Sequence:        7,
		LastActiveSlot:  1234,
		CreatedAt:       1700000000,
		IsFrozen:        true,
		ThresholdAmount: 5_000_000_000,
		KeyVersion:      3,
		PQCPublicKey:    bytes.Repeat([]byte{0xAB}, keySize),
	}
}

func TestIdentityLayoutOffsets(t *testing.T) {
	assert.Equal(t, 65, OffsetIsFrozen)
	assert.Equal(t, 66, OffsetThreshold)
	assert.Equal(t, 76, MinIdentityRecordSize)
	assert.Equal(t, 80, IdentityHeaderSize)

	qi := testIdentity(MLDSA44PublicKeySize)
	raw, err := qi.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, IdentityHeaderSize+MLDSA44PublicKeySize)

	assert.Equal(t, IdentityDiscriminator[:], raw[:8])
	assert.Equal(t, qi.Owner[:], raw[8:40])
	assert.Equal(t, DefaultBump, raw[40])
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(raw[41:49]))
	assert.Equal(t, uint64(1234), binary.LittleEndian.Uint64(raw[49:57]))
	assert.Equal(t, int64(1700000000), int64(binary.LittleEndian.Uint64(raw[57:65])))
	assert.Equal(t, byte(1), raw[65])
	assert.Equal(t, uint64(5_000_000_000), binary.LittleEndian.Uint64(raw[66:74]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(raw[74:76]))
	assert.Equal(t, uint32(MLDSA44PublicKeySize), binary.LittleEndian.Uint32(raw[76:80]))
}

func TestIdentityRoundTripAndResize(t *testing.T) {
	qi := testIdentity(MLDSA44PublicKeySize)
	raw, err := qi.MarshalBinary()
	require.NoError(t, err)

	var decoded QuantumIdentity
	require.NoError(t, decoded.UnmarshalBinary(raw))
	assert.Equal(t, qi, &decoded)

	// grow the key container to ML-DSA-65 and back
	decoded.SetPQCPublicKey(bytes.Repeat([]byte{0xCD}, MLDSA65PublicKeySize))
	raw65, err := decoded.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw65, IdentityHeaderSize+MLDSA65PublicKeySize)

	var again QuantumIdentity
	require.NoError(t, again.UnmarshalBinary(raw65))
	assert.Len(t, again.PQCPublicKey, MLDSA65PublicKeySize)

	again.SetPQCPublicKey(bytes.Repeat([]byte{0xEF}, MLDSA44PublicKeySize))
	raw44, err := again.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw44, IdentityHeaderSize+MLDSA44PublicKeySize)
}

func TestIdentityUnmarshalRejectsMalformed(t *testing.T) {
	raw, err := testIdentity(MLDSA44PublicKeySize).MarshalBinary()
	require.NoError(t, err)

	var qi QuantumIdentity
	assert.ErrorIs(t, qi.UnmarshalBinary(raw[:50]), ErrInvalidIdentityData)
	assert.ErrorIs(t, qi.UnmarshalBinary(raw[:len(raw)-1]), ErrInvalidIdentityData)

	badDisc := append([]byte{}, raw...)
	badDisc[0] ^= 0xFF
	assert.ErrorIs(t, qi.UnmarshalBinary(badDisc), ErrInvalidIdentityData)
}

func TestIdentityRecordView(t *testing.T) {
	raw, err := testIdentity(MLDSA65PublicKeySize).MarshalBinary()
	require.NoError(t, err)

	view := IdentityRecordView(raw)
	assert.True(t, view.Complete())
	assert.True(t, view.IsFrozen())
	assert.Equal(t, uint64(5_000_000_000), view.Threshold())
	assert.Equal(t, uint16(3), view.KeyVersion())

	// the peek path only needs the fixed part
	short := IdentityRecordView(raw[:MinIdentityRecordSize])
	assert.True(t, short.Complete())
	assert.Equal(t, uint64(5_000_000_000), short.Threshold())
	assert.False(t, IdentityRecordView(raw[:MinIdentityRecordSize-1]).Complete())
}

func TestSaturatingIncrements(t *testing.T) {
	assert.Equal(t, uint64(1), SaturatingIncU64(0))
	assert.Equal(t, ^uint64(0), SaturatingIncU64(^uint64(0)))
	assert.Equal(t, uint16(2), SaturatingIncU16(1))
	assert.Equal(t, ^uint16(0), SaturatingIncU16(^uint16(0)))
}
