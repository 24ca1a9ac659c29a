package persist

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const (
	// ActionListingCreated is emitted when a lender publishes a listing
	ActionListingCreated Action = "ListingCreated"
	// ActionListingCancelled is emitted when a lender cancels a listing
	ActionListingCancelled Action = "ListingCancelled"
	// ActionRentalCompleted is emitted when a rent call succeeds
	ActionRentalCompleted Action = "RentalCompleted"
	// ActionDelegationChanged is emitted whenever an asset's delegation is written
	ActionDelegationChanged Action = "DelegationChanged"
)

const (
	// ResourceTypeAsset scopes an event to a registry asset
	ResourceTypeAsset ResourceType = iota
	// ResourceTypeListing scopes an event to a listing
	ResourceTypeListing
	// ResourceTypeRental scopes an event to a rental receipt
	ResourceTypeRental
)

// Action represents the kind of state change an event describes
type Action string

// ActionList is a slice of Actions
type ActionList []Action

// ResourceType represents the kind of resource an event is about
type ResourceType int

// Event is a persisted state-change notification, consumed by external observers
type Event struct {
	ID           DBID         `json:"id"`
	CreationTime CreationTime `json:"created_at"`

	ActorAddress EthereumAddress `json:"actor_address"`
	Action       Action          `json:"action" validate:"required"`
	ResourceType ResourceType    `json:"resource_type"`

	ContractAddress EthereumAddress `json:"contract_address"`
	TokenID         TokenID         `json:"token_id"`
	Chain           Chain           `json:"chain"`

	Data EventData `json:"data"`
}

// EventData carries the action-specific payload of an event
type EventData struct {
	LenderAddress EthereumAddress `json:"lender_address,omitempty"`
	RenterAddress EthereumAddress `json:"renter_address,omitempty"`
	UserAddress   EthereumAddress `json:"user_address,omitempty"`
	PricePerDay   *Amount         `json:"price_per_day,omitempty"`
	MinDays       int64           `json:"min_days,omitempty"`
	MaxDays       int64           `json:"max_days,omitempty"`
	Days          int64           `json:"days,omitempty"`
	TotalPrice    *Amount         `json:"total_price,omitempty"`
	ExpiresAt     int64           `json:"expires_at,omitempty"`
}

// EventRepository represents a repository for persisting emitted events
type EventRepository interface {
	Add(context.Context, Event) (Event, error)
	GetByAsset(context.Context, EthereumAddress, TokenID, Chain, int64) ([]Event, error)
}

// ErrUnknownAction is returned when an event carries an unregistered action
type ErrUnknownAction struct {
	Action Action
}

func (e ErrUnknownAction) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Action)
}

// Value implements the driver.Valuer interface for Action
func (a Action) Value() (driver.Value, error) {
	return string(a), nil
}

// Scan implements the sql.Scanner interface for Action
func (a *Action) Scan(i interface{}) error {
	if i == nil {
		*a = ""
		return nil
	}
	switch v := i.(type) {
	case string:
		*a = Action(v)
	case []byte:
		*a = Action(v)
	default:
		return fmt.Errorf("unsupported type for Action: %T", i)
	}
	return nil
}

// Value implements the driver.Valuer interface for EventData
func (d EventData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for EventData
func (d *EventData) Scan(i interface{}) error {
	if i == nil {
		*d = EventData{}
		return nil
	}
	switch v := i.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported type for EventData: %T", i)
	}
}
