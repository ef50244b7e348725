// Package pqc holds the pluggable post-quantum signature verification oracles.
package pqc

import "bytes"

// SignatureOracle verifies a (public key, message, signature) triple.
// Implementations are pure and deterministic; a rejected signature is simply false.
type SignatureOracle interface {
	Verify(publicKey, message, signature []byte) bool
}

// OracleFunc adapts a function to SignatureOracle
type OracleFunc func(publicKey, message, signature []byte) bool

func (f OracleFunc) Verify(publicKey, message, signature []byte) bool {
	return f(publicKey, message, signature)
}

// AlwaysValid accepts every signature. Test use only.
type AlwaysValid struct{}

func (AlwaysValid) Verify(_, _, _ []byte) bool {
	return true
}

// FailureSentinel marks a signature the Placeholder oracle rejects
var FailureSentinel = []byte{0, 0, 0, 0}

// Placeholder accepts every signature unless it starts with FailureSentinel.
// It stands in for a real verifier during development and must not be used in production.
type Placeholder struct{}

func (Placeholder) Verify(_, _, signature []byte) bool {
	return !bytes.HasPrefix(signature, FailureSentinel)
}
