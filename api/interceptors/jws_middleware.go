package interceptors

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-jose/go-jose/v3"
	apiutil "github.com/quresis/go-quresis-server/api/util"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
)

const (
	defaultTokenMaxAge = 5 * time.Minute
	clockSkew          = 30 * time.Second
)

// JWSMiddleware authenticates the caller of owner and authority endpoints. The token is a
// compact JWS signed with the caller's Ed25519 key, which is embedded as JWK in the
// protected header. The sub claim must be the base58 form of that key.
func JWSMiddleware(maxAge time.Duration) gin.HandlerFunc {
	if maxAge <= 0 {
		maxAge = defaultTokenMaxAge
	}
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		auth = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		object, err := jose.ParseSigned(auth)
		if err != nil || len(object.Signatures) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid JWS message"})
			return
		}
		jwk := object.Signatures[0].Protected.JSONWebKey
		if jwk == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "JWS message has no embedded key"})
			return
		}
		callerKey, ok := jwk.Key.(ed25519.PublicKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "JWS key is not Ed25519"})
			return
		}

		payload, err := object.Verify(callerKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Failed to verify JWS message"})
			return
		}

		var claims types.CallerClaims
		if uErr := json.Unmarshal(payload, &claims); uErr != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to parse JWS payload"})
			return
		}
		now := time.Now()
		if claims.ExpiresAt == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to parse JWS payload (exp missing)"})
			return
		}
		if claims.ExpiresAt < now.Unix() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "JWS message expired"})
			return
		}
		issued := time.Unix(claims.IssuedAt, 0)
		if issued.After(now.Add(clockSkew)) || now.Sub(issued) > maxAge {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "JWS message too old"})
			return
		}

		caller, err := types.PublicKeyFromEd25519(callerKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid caller key"})
			return
		}
		if claims.Subject != caller.String() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "JWS subject does not match signing key"})
			return
		}
		c.Set(apiutil.CallerKey, caller)
		c.Next()
	}
}

// GenerateJWSToken signs a caller token with the owner's key, valid for ttl
func GenerateJWSToken(ownerKey ed25519.PrivateKey, ttl time.Duration) (string, error) {
	caller, err := types.PublicKeyFromEd25519(ownerKey.Public().(ed25519.PublicKey))
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &types.CallerClaims{
		Subject:   caller.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
		Nonce:     util.GenerateNonce(16),
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: ownerKey}, &jose.SignerOptions{EmbedJWK: true})
	if err != nil {
		return "", err
	}

	plBytes, plErr := json.Marshal(claims)
	if plErr != nil {
		return "", plErr
	}
	object, err := signer.Sign(plBytes)
	if err != nil {
		return "", err
	}

	return object.CompactSerialize()
}
