package persist

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strings"
)

const (
	// ChainETH represents the Ethereum blockchain
	ChainETH Chain = iota
	// ChainArbitrum represents the Arbitrum blockchain
	ChainArbitrum
	// ChainPolygon represents the Polygon/Matic blockchain
	ChainPolygon
	// ChainOptimism represents the Optimism blockchain
	ChainOptimism
	// MaxChainValue is the highest valid chain value, and should always be updated to
	// point to the most recently added chain type.
	MaxChainValue = ChainOptimism
)

// ZeroAddress is the all-zero Ethereum address, used as the "no user" sentinel
const ZeroAddress EthereumAddress = "0x0000000000000000000000000000000000000000"

// EthereumAddress represents an Ethereum address
type EthereumAddress string

// Chain represents which blockchain an asset is on
type Chain int

// TokenID represents a token ID as a hex string without a 0x prefix
type TokenID string

// String normalizes the address to its lowercase hex form
func (a EthereumAddress) String() string {
	return strings.ToLower(string(a))
}

// IsZero returns true for the empty or all-zero address
func (a EthereumAddress) IsZero() bool {
	return a == "" || a.String() == ZeroAddress.String()
}

// Value implements the driver.Valuer interface for EthereumAddress
func (a EthereumAddress) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements the sql.Scanner interface for EthereumAddress
func (a *EthereumAddress) Scan(i interface{}) error {
	if i == nil {
		*a = ""
		return nil
	}
	switch v := i.(type) {
	case string:
		*a = EthereumAddress(v)
	case []byte:
		*a = EthereumAddress(v)
	default:
		return fmt.Errorf("unsupported type for EthereumAddress: %T", i)
	}
	return nil
}

func (c Chain) String() string {
	switch c {
	case ChainETH:
		return "ethereum"
	case ChainArbitrum:
		return "arbitrum"
	case ChainPolygon:
		return "polygon"
	case ChainOptimism:
		return "optimism"
	default:
		return "unknown"
	}
}

// Value implements the driver.Valuer interface for Chain
func (c Chain) Value() (driver.Value, error) {
	return int64(c), nil
}

// Scan implements the sql.Scanner interface for Chain
func (c *Chain) Scan(i interface{}) error {
	if i == nil {
		*c = ChainETH
		return nil
	}
	*c = Chain(i.(int64))
	return nil
}

func (t TokenID) String() string {
	return strings.TrimPrefix(strings.ToLower(string(t)), "0x")
}

// BigInt returns the token ID as a big.Int, parsed as hex
func (t TokenID) BigInt() *big.Int {
	i, ok := new(big.Int).SetString(t.String(), 16)
	if !ok {
		return big.NewInt(0)
	}
	return i
}

// Base10String returns the token ID as a decimal string
func (t TokenID) Base10String() string {
	return t.BigInt().String()
}

// Value implements the driver.Valuer interface for TokenID
func (t TokenID) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements the sql.Scanner interface for TokenID
func (t *TokenID) Scan(i interface{}) error {
	if i == nil {
		*t = ""
		return nil
	}
	switch v := i.(type) {
	case string:
		*t = TokenID(v)
	case []byte:
		*t = TokenID(v)
	default:
		return fmt.Errorf("unsupported type for TokenID: %T", i)
	}
	return nil
}
