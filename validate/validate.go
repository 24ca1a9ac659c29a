package validate

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// ValidationMap is a map of field names to values and their validation tags
type ValidationMap map[string]ValWithTags

// ValWithTags pairs a value with the validator tags to apply to it
type ValWithTags struct {
	Value interface{}
	Tag   string
}

// WithTag is a convenience constructor for a ValWithTags
func WithTag(value interface{}, tag string) ValWithTags {
	return ValWithTags{Value: value, Tag: tag}
}

// ErrInvalidInput is returned when one or more fields fail validation
type ErrInvalidInput struct {
	Parameters []string
	Reasons    []string
}

func (e ErrInvalidInput) Error() string {
	str := "invalid input:\n"
	for i := range e.Parameters {
		str += fmt.Sprintf("    parameter: %s, reason: %s\n", e.Parameters[i], e.Reasons[i])
	}
	return str
}

// ValidateFields validates each value in the map against its tag, collecting
// every failure instead of stopping at the first
func ValidateFields(validator *validator.Validate, fields ValidationMap) error {
	validationErr := ErrInvalidInput{}
	foundErrors := false

	for k, v := range fields {
		err := validator.Var(v.Value, v.Tag)
		if err != nil {
			foundErrors = true
			validationErr.Parameters = append(validationErr.Parameters, k)
			validationErr.Reasons = append(validationErr.Reasons, err.Error())
		}
	}

	if foundErrors {
		return validationErr
	}

	return nil
}

// WithCustomValidators returns a validator with our custom validations registered
func WithCustomValidators() *validator.Validate {
	v := validator.New()
	RegisterCustomValidators(v)
	return v
}

// RegisterCustomValidators adds custom validations to a validator
func RegisterCustomValidators(v *validator.Validate) {
	v.RegisterValidation("eth_addr", EthAddressValidator)
	v.RegisterValidation("hex_token_id", HexTokenIDValidator)
}

// EthAddressValidator validates that a string is a hex encoded Ethereum address
func EthAddressValidator(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	if addr == "" {
		return false
	}
	return common.IsHexAddress(addr)
}

// HexTokenIDValidator validates that a string is a hex encoded token ID
func HexTokenIDValidator(fl validator.FieldLevel) bool {
	id := strings.TrimPrefix(strings.ToLower(fl.Field().String()), "0x")
	if id == "" {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
