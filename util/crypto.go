package util

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	src "math/rand"

	"github.com/quresis/go-quresis-server/types"
	"golang.org/x/crypto/sha3"
)

// MessageHash is the digest reported in SignatureVerified events (SHA3-256)
func MessageHash(message []byte) [32]byte {
	return sha3.Sum256(message)
}

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// Generates a random nonce of custom length in bytes
func GenerateNonce(n int) string {
	b := make([]byte, n)
	// A src.Int63() generates 63 random bits, enough for letterIdxMax characters!
	for i, cache, remain := n-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}

	return string(b)
}

// GenerateEd25519KeyPair returns the owner key (base58) and the base64 private key
func GenerateEd25519KeyPair() (string, string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	owner, err := types.PublicKeyFromEd25519(pub)
	if err != nil {
		return "", "", err
	}
	return owner.String(), base64.StdEncoding.EncodeToString(priv), nil
}

// DecodeEd25519PrivateKey decodes a base64 private key (seed or full key)
func DecodeEd25519PrivateKey(privateKeyBase64 string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(privateKeyBase64)
	if err != nil {
		return nil, err
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	}
	return nil, fmt.Errorf("invalid ed25519 private key length %d", len(raw))
}

// Verify checks an ed25519 signature made by the owner key
func Verify(message []byte, signature []byte, owner types.PublicKey) bool {
	return ed25519.Verify(ed25519.PublicKey(owner[:]), message, signature)
}
