package types

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Identity record layout (little endian):
//
//	disc(8) | owner(32) | bump(1) | sequence(8) | lastActiveSlot(8) | createdAt(8) |
//	isFrozen(1) | thresholdAmount(8) | keyVersion(2) | pqcPublicKeyLen(4) | pqcPublicKey(var)
//
// Raw inspection reads isFrozen and thresholdAmount at fixed offsets without decoding
// the whole record, so these offsets must never move.
const (
	DiscriminatorSize = 8

	offsetOwner          = DiscriminatorSize
	offsetBump           = offsetOwner + PublicKeySize
	offsetSequence       = offsetBump + 1
	offsetLastActiveSlot = offsetSequence + 8
	offsetCreatedAt      = offsetLastActiveSlot + 8
	OffsetIsFrozen       = offsetCreatedAt + 8  // 65
	OffsetThreshold      = OffsetIsFrozen + 1   // 66
	offsetKeyVersion     = OffsetThreshold + 8  // 74
	offsetKeyLen         = offsetKeyVersion + 2 // 76
	offsetKey            = offsetKeyLen + 4     // 80

	// MinIdentityRecordSize covers the discriminator through keyVersion
	MinIdentityRecordSize = offsetKeyLen
	// IdentityHeaderSize is the fixed part of a record including the key length prefix
	IdentityHeaderSize = offsetKey
)

// DefaultBump is stored in the bump byte of every record
const DefaultBump uint8 = 255

// IdentityDiscriminator prefixes every encoded identity record
var IdentityDiscriminator = accountDiscriminator("QuantumIdentity")

func accountDiscriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// QuantumIdentity binds a classical owner key to a post-quantum public key and a value threshold
type QuantumIdentity struct {
	Owner           PublicKey `json:"owner"`
	Bump            uint8     `json:"bump"`
	Sequence        uint64    `json:"sequence"`
	LastActiveSlot  uint64    `json:"lastActiveSlot"`
	CreatedAt       int64     `json:"createdAt"`
	IsFrozen        bool      `json:"isFrozen"`
	ThresholdAmount uint64    `json:"thresholdAmount"`
	KeyVersion      uint16    `json:"keyVersion"`
	PQCPublicKey    []byte    `json:"pqcPublicKey"`
}

// MarshalBinary encodes the identity into its persisted layout
func (qi *QuantumIdentity) MarshalBinary() ([]byte, error) {
	if len(qi.PQCPublicKey) > MaxPQCPublicKeySize {
		return nil, ErrInvalidKeyLength
	}
	buf := make([]byte, IdentityHeaderSize+len(qi.PQCPublicKey))
	copy(buf[:DiscriminatorSize], IdentityDiscriminator[:])
	copy(buf[offsetOwner:offsetBump], qi.Owner[:])
	buf[offsetBump] = qi.Bump
	binary.LittleEndian.PutUint64(buf[offsetSequence:], qi.Sequence)
	binary.LittleEndian.PutUint64(buf[offsetLastActiveSlot:], qi.LastActiveSlot)
	binary.LittleEndian.PutUint64(buf[offsetCreatedAt:], uint64(qi.CreatedAt))
	if qi.IsFrozen {
		buf[OffsetIsFrozen] = 1
	}
	binary.LittleEndian.PutUint64(buf[OffsetThreshold:], qi.ThresholdAmount)
	binary.LittleEndian.PutUint16(buf[offsetKeyVersion:], qi.KeyVersion)
	binary.LittleEndian.PutUint32(buf[offsetKeyLen:], uint32(len(qi.PQCPublicKey)))
	copy(buf[offsetKey:], qi.PQCPublicKey)
	return buf, nil
}

// UnmarshalBinary fully decodes a persisted record. The key buffer is replaced, never aliased.
func (qi *QuantumIdentity) UnmarshalBinary(data []byte) error {
	if len(data) < IdentityHeaderSize {
		return fmt.Errorf("%w: record is %d bytes", ErrInvalidIdentityData, len(data))
	}
	var disc [DiscriminatorSize]byte
	copy(disc[:], data[:DiscriminatorSize])
	if disc != IdentityDiscriminator {
		return fmt.Errorf("%w: unexpected discriminator", ErrInvalidIdentityData)
	}
	keyLen := binary.LittleEndian.Uint32(data[offsetKeyLen:])
	if keyLen > MaxPQCPublicKeySize || int(keyLen) != len(data)-IdentityHeaderSize {
		return fmt.Errorf("%w: key length %d does not match record", ErrInvalidIdentityData, keyLen)
	}
	if data[OffsetIsFrozen] > 1 {
		return fmt.Errorf("%w: frozen flag %d", ErrInvalidIdentityData, data[OffsetIsFrozen])
	}

	copy(qi.Owner[:], data[offsetOwner:offsetBump])
	qi.Bump = data[offsetBump]
	qi.Sequence = binary.LittleEndian.Uint64(data[offsetSequence:])
	qi.LastActiveSlot = binary.LittleEndian.Uint64(data[offsetLastActiveSlot:])
	qi.CreatedAt = int64(binary.LittleEndian.Uint64(data[offsetCreatedAt:]))
	qi.IsFrozen = data[OffsetIsFrozen] == 1
	qi.ThresholdAmount = binary.LittleEndian.Uint64(data[OffsetThreshold:])
	qi.KeyVersion = binary.LittleEndian.Uint16(data[offsetKeyVersion:])
	qi.PQCPublicKey = append(make([]byte, 0, keyLen), data[offsetKey:]...)
	return nil
}

// SetPQCPublicKey replaces the key payload wholesale (grow or shrink)
func (qi *QuantumIdentity) SetPQCPublicKey(key []byte) {
	qi.PQCPublicKey = append(qi.PQCPublicKey[:0:0], key...)
}

// IdentityRecordView reads policy fields straight from a raw record
type IdentityRecordView []byte

// Complete reports whether the record is long enough for fixed offset reads
func (v IdentityRecordView) Complete() bool {
	return len(v) >= MinIdentityRecordSize
}

// IsFrozen reads the frozen flag at offset 65
func (v IdentityRecordView) IsFrozen() bool {
	return v[OffsetIsFrozen] == 1
}

// Threshold reads the little endian threshold window at offsets 66..74
func (v IdentityRecordView) Threshold() uint64 {
	return binary.LittleEndian.Uint64(v[OffsetThreshold : OffsetThreshold+8])
}

// KeyVersion reads the key version at offsets 74..76
func (v IdentityRecordView) KeyVersion() uint16 {
	return binary.LittleEndian.Uint16(v[offsetKeyVersion:offsetKeyLen])
}

// SaturatingIncU64 adds one without wrapping past the maximum
func SaturatingIncU64(v uint64) uint64 {
	if v == ^uint64(0) {
		return v
	}
	return v + 1
}

// SaturatingIncU16 adds one without wrapping past the maximum
func SaturatingIncU16(v uint16) uint16 {
	if v == ^uint16(0) {
		return v
	}
	return v + 1
}
