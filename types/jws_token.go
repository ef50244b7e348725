package types

type JwsToken struct {
	Token string `json:"token"`
}

// claims of a caller token; sub is the base58 owner key whose Ed25519 JWK signed the token
type CallerClaims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"jti,omitempty"`
}
