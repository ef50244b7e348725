package types

// ML-DSA parameters (NIST FIPS 204)
const (
	// MLDSA44PublicKeySize is the ML-DSA-44 public key size in bytes
	MLDSA44PublicKeySize = 1312
	// MLDSA44SignatureSize is the ML-DSA-44 signature size in bytes
	MLDSA44SignatureSize = 2420
	// MLDSA65PublicKeySize is the ML-DSA-65 public key size in bytes
	MLDSA65PublicKeySize = 1952
	// MLDSA65SignatureSize is the ML-DSA-65 signature size in bytes
	MLDSA65SignatureSize = 3293
	// MaxPQCPublicKeySize is the capacity of the key container of an identity record
	MaxPQCPublicKeySize = 2048
)

// Threshold amounts in the smallest unit of the guarded asset
const (
	DefaultThreshold uint64 = 100_000_000_000
	MinThreshold     uint64 = 1_000_000_000
	MaxThreshold     uint64 = 1_000_000_000_000_000_000
)

// DefaultMaxMessageSize caps messages passed to signature verification
const DefaultMaxMessageSize = 64 * 1024

// IsValidPQCKeyLength reports whether n is one of the supported ML-DSA public key sizes
func IsValidPQCKeyLength(n int) bool {
	return n == MLDSA44PublicKeySize || n == MLDSA65PublicKeySize
}
