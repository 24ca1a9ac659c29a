package validate

import (
	"github.com/go-playground/validator/v10"

	"github.com/rentfi/go-rentfi/service/persist"
)

var knownActions = map[persist.Action]struct{}{
	persist.ActionListingCreated:    {},
	persist.ActionListingCancelled:  {},
	persist.ActionRentalCompleted:   {},
	persist.ActionDelegationChanged: {},
}

// EventValidator is a struct-level validation for persist.Event
func EventValidator(sl validator.StructLevel) {
	event := sl.Current().Interface().(persist.Event)

	if _, ok := knownActions[event.Action]; !ok {
		sl.ReportError(event.Action, "Action", "Action", "known_action", "")
	}

	if event.ContractAddress == "" || event.ContractAddress == persist.ZeroAddress {
		sl.ReportError(event.ContractAddress, "ContractAddress", "ContractAddress", "required", "")
	}

	if event.TokenID == "" {
		sl.ReportError(event.TokenID, "TokenID", "TokenID", "required", "")
	}
}
