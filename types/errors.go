package types

import "errors"

var (
	// ErrInvalidKeyLength is returned when a PQC public key is neither ML-DSA-44 (1312) nor ML-DSA-65 (1952) bytes
	ErrInvalidKeyLength = errors.New("invalid PQC public key length, expected 1312 (ML-DSA-44) or 1952 (ML-DSA-65) bytes")

	// ErrInvalidThreshold is returned when a threshold is outside the configured bounds
	ErrInvalidThreshold = errors.New("invalid threshold amount")

	// ErrInvalidQuantumSignature is returned when the oracle rejects a signature
	ErrInvalidQuantumSignature = errors.New("quantum signature verification failed")

	// ErrIdentityFrozen is returned for any verification or rotation on a frozen identity
	ErrIdentityFrozen = errors.New("quantum identity is frozen")

	// ErrHookNotInitialized is returned when no hook config exists for an asset
	ErrHookNotInitialized = errors.New("hook is not initialized for this asset")

	// ErrQuantumSignatureRequired is the BLOCK reason of a hard-enforced high value transfer
	ErrQuantumSignatureRequired = errors.New("quantum signature is required for this transfer amount")

	// ErrInvalidIdentityData is returned when a stored identity record has a malformed layout
	ErrInvalidIdentityData = errors.New("invalid identity data format")

	// ErrSequenceMismatch is returned when the expected key version does not match the stored one
	ErrSequenceMismatch = errors.New("sequence number mismatch, possible replay")

	// ErrUnauthorized is returned when the caller is not the record's designated authority
	ErrUnauthorized = errors.New("caller is not the designated authority")

	// ErrMessageTooLarge is returned when a signed message exceeds the configured maximum
	ErrMessageTooLarge = errors.New("message size exceeds maximum allowed")

	// ErrInvalidEnforcementMode is returned for an unknown enforcement mode
	ErrInvalidEnforcementMode = errors.New("invalid enforcement mode")

	// ErrIdentityExists is returned when an owner already has a registered identity
	ErrIdentityExists = errors.New("quantum identity already registered")

	// ErrHookExists is returned when a hook is already initialized for an asset
	ErrHookExists = errors.New("hook already initialized")

	// ErrInvalidPublicKey is returned when a classical key cannot be decoded
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrNotFound is returned when the resource is not found
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned when the storage backend rejects a request
	ErrBadRequest = errors.New("bad request")

	// ErrConflict is returned when the resource conflicts (e.g. update of old revision)
	ErrConflict = errors.New("conflict")

	// ErrInternal (for unhandled exceptions)
	ErrInternal = errors.New("internal error")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidKeyLength, "InvalidKeyLength"},
	{ErrInvalidThreshold, "InvalidThreshold"},
	{ErrInvalidQuantumSignature, "InvalidQuantumSignature"},
	{ErrIdentityFrozen, "IdentityFrozen"},
	{ErrHookNotInitialized, "HookNotInitialized"},
	{ErrQuantumSignatureRequired, "QuantumSignatureRequired"},
	{ErrInvalidIdentityData, "InvalidIdentityData"},
	{ErrSequenceMismatch, "SequenceMismatch"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrMessageTooLarge, "MessageTooLarge"},
	{ErrInvalidEnforcementMode, "InvalidEnforcementMode"},
	{ErrIdentityExists, "IdentityExists"},
	{ErrHookExists, "HookExists"},
	{ErrInvalidPublicKey, "InvalidPublicKey"},
	{ErrNotFound, "NotFound"},
	{ErrConflict, "Conflict"},
	{ErrBadRequest, "BadRequest"},
}

// ErrorKind returns the caller facing name of a known error kind, or "Internal"
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return "Internal"
}
