package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentfi/go-rentfi/service/persist"
)

func setDefaults(t *testing.T) {
	t.Helper()
	viper.Set("AUTH_JWT_SECRET", "test-secret")
	viper.Set("AUTH_JWT_TTL", 3600)
}

func TestAuthToken_Roundtrip(t *testing.T) {
	setDefaults(t)
	a := assert.New(t)
	ctx := context.Background()

	address := persist.EthereumAddress("0x8914496dc01efcc49a2fa340331fb90969b6f1d2")

	token, err := GenerateAuthToken(ctx, address)
	require.NoError(t, err)
	a.NotEmpty(token)

	claims, err := ParseAuthToken(ctx, token)
	a.NoError(err)
	a.Equal(address, claims.Address)
	a.Equal(TokenTypeAuth, claims.TokenType)
}

func TestAuthToken_RejectsTampering(t *testing.T) {
	setDefaults(t)
	a := assert.New(t)
	ctx := context.Background()

	token, err := GenerateAuthToken(ctx, "0x8914496dc01efcc49a2fa340331fb90969b6f1d2")
	require.NoError(t, err)

	t.Run("rejects a garbage token", func(t *testing.T) {
		_, err := ParseAuthToken(ctx, "not.a.jwt")
		a.ErrorIs(err, ErrInvalidJWT)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		viper.Set("AUTH_JWT_SECRET", "rotated-secret")
		_, err := ParseAuthToken(ctx, token)
		a.ErrorIs(err, ErrInvalidJWT)
	})
}

func TestVerifySignature(t *testing.T) {
	a := assert.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := persist.EthereumAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())

	message := NoncePrepend + "2H9yoj0TiXAn612yRiFnFuXvXqQ"
	sign := func(msg string) string {
		data := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
		hash := crypto.Keccak256Hash([]byte(data))
		sig, err := crypto.Sign(hash.Bytes(), key)
		require.NoError(t, err)
		return hexutil.Encode(sig)
	}

	t.Run("accepts a valid personal_sign signature", func(t *testing.T) {
		valid, err := VerifySignature(sign(message), message, address)
		a.NoError(err)
		a.True(valid)
	})

	t.Run("rejects a signature over a different message", func(t *testing.T) {
		valid, err := VerifySignature(sign("something else"), message, address)
		a.False(valid)
		a.Error(err)
	})

	t.Run("rejects a signature from another key", func(t *testing.T) {
		otherKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		otherAddress := persist.EthereumAddress(crypto.PubkeyToAddress(otherKey.PublicKey).Hex())

		valid, err := VerifySignature(sign(message), message, otherAddress)
		a.False(valid)
		a.Error(err)
	})

	t.Run("rejects malformed signatures", func(t *testing.T) {
		_, err := VerifySignature("0xdeadbeef", message, address)
		a.Error(err)
	})
}
