package pqc

import (
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultKeyCacheSize = 1024

// MLDSAOracle verifies FIPS 204 ML-DSA-44 and ML-DSA-65 signatures.
// The parameter set is chosen from the public key size. Parsed keys are cached.
type MLDSAOracle struct {
	keys *lru.Cache[string, sign.PublicKey]
}

func NewMLDSAOracle(cacheSize int) (*MLDSAOracle, error) {
	if cacheSize <= 0 {
		cacheSize = defaultKeyCacheSize
	}
	cache, err := lru.New[string, sign.PublicKey](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ML-DSA key cache: %w", err)
	}
	return &MLDSAOracle{keys: cache}, nil
}

// SchemeForPublicKey returns the ML-DSA parameter set matching a public key size
func SchemeForPublicKey(size int) (sign.Scheme, bool) {
	switch size {
	case mldsa44.PublicKeySize:
		return mldsa44.Scheme(), true
	case mldsa65.PublicKeySize:
		return mldsa65.Scheme(), true
	}
	return nil, false
}

// SchemeByLevel returns ML-DSA-44 or ML-DSA-65
func SchemeByLevel(level int) (sign.Scheme, error) {
	switch level {
	case 44:
		return mldsa44.Scheme(), nil
	case 65:
		return mldsa65.Scheme(), nil
	}
	return nil, fmt.Errorf("unsupported ML-DSA level %d", level)
}

func (o *MLDSAOracle) Verify(publicKey, message, signature []byte) bool {
	scheme, ok := SchemeForPublicKey(len(publicKey))
	if !ok {
		return false
	}
	if len(signature) != scheme.SignatureSize() {
		return false
	}
	pk, err := o.publicKey(scheme, publicKey)
	if err != nil {
		return false
	}
	return scheme.Verify(pk, message, signature, nil)
}

func (o *MLDSAOracle) publicKey(scheme sign.Scheme, raw []byte) (sign.PublicKey, error) {
	cacheKey := string(raw)
	if pk, ok := o.keys.Get(cacheKey); ok {
		return pk, nil
	}
	pk, err := scheme.UnmarshalBinaryPublicKey(raw)
	if err != nil {
		return nil, err
	}
	o.keys.Add(cacheKey, pk)
	return pk, nil
}
