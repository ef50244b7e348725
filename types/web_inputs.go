package types

// register a quantum identity for the authenticated owner
type InputRegisterIdentity struct {
	PQCPublicKey    []byte  `json:"pqcPublicKey"` // base64 in JSON
	ThresholdAmount *uint64 `json:"thresholdAmount,omitempty"`
}

type InputRotateKey struct {
	NewPQCPublicKey    []byte `json:"newPqcPublicKey"`
	OldKeySignature    []byte `json:"oldKeySignature"`
	SignedMessage      []byte `json:"signedMessage" validate:"required"`
	ExpectedKeyVersion uint16 `json:"expectedKeyVersion,omitempty"` // optional stale write guard
}

type InputVerifySignature struct {
	Message   []byte `json:"message" validate:"required"`
	Signature []byte `json:"signature"`
}

type InputUpdateThreshold struct {
	ThresholdAmount uint64 `json:"thresholdAmount"`
}

type InputInitializeHook struct {
	Asset           string          `json:"asset" validate:"required"`
	EnforcementMode EnforcementMode `json:"enforcementMode"`
}

type InputUpdateEnforcementMode struct {
	EnforcementMode EnforcementMode `json:"enforcementMode"`
}

type InputTransferCheck struct {
	Sender string `json:"sender" validate:"required"`
	Amount uint64 `json:"amount"`
}

type InputVerifiedTransferCheck struct {
	InputTransferCheck
	Signature []byte `json:"signature"`
}
