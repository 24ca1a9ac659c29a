package persist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAsset_EffectiveUser(t *testing.T) {
	a := assert.New(t)

	now := time.Now()
	owner := EthereumAddress("0x8914496dc01efcc49a2fa340331fb90969b6f1d2")
	user := EthereumAddress("0x9a3f9764b21adaf3c6fdf6f947e6d3340a3f8ac5")

	asset := Asset{
		OwnerAddress: owner,
		Delegation:   Delegation{User: user, ExpiresAt: now.Add(time.Hour)},
	}

	t.Run("returns the user while the delegation is live", func(t *testing.T) {
		a.Equal(user, asset.EffectiveUser(now))
		a.True(asset.IsCurrentlyDelegated(now))
	})

	t.Run("returns zero exactly at expiry", func(t *testing.T) {
		a.Equal(ZeroAddress, asset.EffectiveUser(now.Add(time.Hour)))
	})

	t.Run("returns zero after expiry without any state change", func(t *testing.T) {
		a.Equal(ZeroAddress, asset.EffectiveUser(now.Add(2*time.Hour)))
		a.Equal(user, asset.Delegation.User) // stored delegation untouched
	})

	t.Run("returns zero when no delegation was ever set", func(t *testing.T) {
		bare := Asset{OwnerAddress: owner}
		a.Equal(ZeroAddress, bare.EffectiveUser(now))
		a.False(bare.IsCurrentlyDelegated(now))
	})
}

func TestAssetIdentifiers_Roundtrip(t *testing.T) {
	a := assert.New(t)

	ids := NewAssetIdentifiers("0x8914496dc01efcc49a2fa340331fb90969b6f1d2", TokenID("1a"), ChainETH)

	contract, tokenID, chain, err := ids.GetParts()
	a.NoError(err)
	a.Equal(EthereumAddress("0x8914496dc01efcc49a2fa340331fb90969b6f1d2"), contract)
	a.Equal(TokenID("1a"), tokenID)
	a.Equal(ChainETH, chain)
}

func TestEthereumAddress_Normalization(t *testing.T) {
	a := assert.New(t)

	mixed := EthereumAddress("0x8914496DC01efcc49a2FA340331Fb90969B6F1d2")
	a.Equal("0x8914496dc01efcc49a2fa340331fb90969b6f1d2", mixed.String())
	a.True(EthereumAddress("").IsZero())
	a.True(ZeroAddress.IsZero())
}
