package pqc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMLDSAOracleVerify(t *testing.T) {
	oracle, err := NewMLDSAOracle(8)
	require.NoError(t, err)

	for _, level := range []int{44, 65} {
		scheme, err := SchemeByLevel(level)
		require.NoError(t, err)

		pk, sk, err := scheme.GenerateKey()
		require.NoError(t, err)
		pkBytes, err := pk.MarshalBinary()
		require.NoError(t, err)

		message := []byte("rotate to version 2")
		signature := scheme.Sign(sk, message, nil)

		assert.True(t, oracle.Verify(pkBytes, message, signature), "level %d", level)
		// cached key path
		assert.True(t, oracle.Verify(pkBytes, message, signature), "level %d", level)

		assert.False(t, oracle.Verify(pkBytes, []byte("other message"), signature))

		tampered := append([]byte{}, signature...)
		tampered[10] ^= 0x01
		assert.False(t, oracle.Verify(pkBytes, message, tampered))

		assert.False(t, oracle.Verify(pkBytes, message, signature[:len(signature)-1]))
	}
}

func TestMLDSAOracleRejectsUnknownKeySize(t *testing.T) {
	oracle, err := NewMLDSAOracle(0)
	require.NoError(t, err)
	assert.False(t, oracle.Verify(make([]byte, 1000), []byte("m"), make([]byte, 2420)))

	_, ok := SchemeForPublicKey(1312)
	assert.True(t, ok)
	_, ok = SchemeForPublicKey(1952)
	assert.True(t, ok)
	_, ok = SchemeForPublicKey(2592)
	assert.False(t, ok)
}
