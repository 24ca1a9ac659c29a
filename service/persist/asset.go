package persist

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// AssetIdentifiers represents a unique identifier for an asset
type AssetIdentifiers string

// Asset represents a rentable asset in the registry. Ownership and the
// current delegation are separate slots: the owner keeps ownership for the
// whole life of the asset while the delegation grants time-boxed use rights.
type Asset struct {
	ID           DBID            `json:"id" binding:"required"`
	Version      NullInt32       `json:"version"` // schema version for this model
	CreationTime CreationTime    `json:"created_at"`
	Deleted      NullBool        `json:"-"`
	LastUpdated  LastUpdatedTime `json:"last_updated"`

	ContractAddress EthereumAddress `json:"contract_address"`
	TokenID         TokenID         `json:"token_id"`
	Chain           Chain           `json:"chain"`
	OwnerAddress    EthereumAddress `json:"owner_address"`

	Delegation Delegation `json:"delegation"`
}

// Delegation is a time-boxed grant of use rights over an asset. A delegation
// whose expiry has passed is logically absent regardless of the stored user;
// nothing clears it eagerly.
type Delegation struct {
	User      EthereumAddress `json:"user"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// EffectiveUser resolves the delegation lazily: the stored user while the
// delegation is live at the given time, the zero address otherwise.
func (a Asset) EffectiveUser(at time.Time) EthereumAddress {
	if a.Delegation.User.IsZero() {
		return ZeroAddress
	}
	if !at.Before(a.Delegation.ExpiresAt) {
		return ZeroAddress
	}
	return a.Delegation.User
}

// IsCurrentlyDelegated returns true when the asset has a live delegation at
// the given time
func (a Asset) IsCurrentlyDelegated(at time.Time) bool {
	return a.EffectiveUser(at) != ZeroAddress
}

// AssetRepository represents a repository for interacting with persisted assets
type AssetRepository interface {
	GetByIdentifiers(context.Context, EthereumAddress, TokenID, Chain) (Asset, error)
	GetByOwner(context.Context, EthereumAddress, int64, int64) ([]Asset, error)
	Mint(context.Context, EthereumAddress, TokenID, Chain, EthereumAddress) (Asset, error)
	SetDelegation(context.Context, EthereumAddress, TokenID, Chain, EthereumAddress, EthereumAddress, time.Time) (Asset, error)
	ClearDelegation(context.Context, EthereumAddress, TokenID, Chain, EthereumAddress) (Asset, error)
	SetOperatorApproval(context.Context, EthereumAddress, EthereumAddress, bool) error
	IsApprovedForAll(context.Context, EthereumAddress, EthereumAddress) (bool, error)
}

// ErrAssetNotFoundByIdentifiers is returned when an asset is not found by its
// identifiers (contract address, token ID and chain)
type ErrAssetNotFoundByIdentifiers struct {
	ContractAddress EthereumAddress
	TokenID         TokenID
	Chain           Chain
}

func (e ErrAssetNotFoundByIdentifiers) Error() string {
	return fmt.Sprintf("asset not found for contract %s token %s chain %d", e.ContractAddress, e.TokenID, e.Chain)
}

// ErrAssetAlreadyExists is returned when minting an asset that is already registered
type ErrAssetAlreadyExists struct {
	ContractAddress EthereumAddress
	TokenID         TokenID
	Chain           Chain
}

func (e ErrAssetAlreadyExists) Error() string {
	return fmt.Sprintf("asset already exists for contract %s token %s chain %d", e.ContractAddress, e.TokenID, e.Chain)
}

// ErrUnauthorized is returned when the caller lacks rights over the asset or listing
type ErrUnauthorized struct {
	Caller EthereumAddress
	Reason string
}

func (e ErrUnauthorized) Error() string {
	return fmt.Sprintf("caller %s is not authorized: %s", e.Caller, e.Reason)
}

// NewAssetIdentifiers creates a new asset identifier
func NewAssetIdentifiers(pContractAddress EthereumAddress, pTokenID TokenID, pChain Chain) AssetIdentifiers {
	return AssetIdentifiers(fmt.Sprintf("%s+%s+%d", pContractAddress.String(), pTokenID.String(), pChain))
}

func (a AssetIdentifiers) String() string {
	return string(a)
}

// GetParts returns the parts of the asset identifiers
func (a AssetIdentifiers) GetParts() (EthereumAddress, TokenID, Chain, error) {
	parts := strings.Split(a.String(), "+")
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("invalid asset identifiers: %s", a)
	}
	var chain Chain
	if _, err := fmt.Sscanf(parts[2], "%d", &chain); err != nil {
		return "", "", 0, fmt.Errorf("invalid chain in asset identifiers: %s", a)
	}
	return EthereumAddress(parts[0]), TokenID(parts[1]), chain, nil
}

// Value implements the driver.Valuer interface
func (a AssetIdentifiers) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements the database/sql Scanner interface for the AssetIdentifiers type
func (a *AssetIdentifiers) Scan(i interface{}) error {
	if i == nil {
		*a = ""
		return nil
	}
	res := strings.Split(i.(string), "+")
	if len(res) != 3 {
		return fmt.Errorf("invalid asset identifiers: %v - %T", i, i)
	}
	*a = AssetIdentifiers(fmt.Sprintf("%s+%s+%s", res[0], res[1], res[2]))

	return nil
}
