//go:build debug_tools
// +build debug_tools

// debugtools_enabled.go is only compiled when the `debug_tools` build tag is set.
// Anything that should be debug-only can be added here. Additionally, because the
// 'Enabled' bool is a const, code in other files that is conditional on Enabled
// will also be compiled out of builds.

package debugtools

import (
	"context"
	"errors"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/service/auth"
	"github.com/rentfi/go-rentfi/service/persist"
)

const Enabled bool = true

func init() {
	// An additional safeguard against running debug tools in production
	if env.GetString("ENV") == "production" {
		panic(errors.New("debug tools may not be enabled in a production environment"))
	}
}

// DebugLogin issues an auth token for an arbitrary address without a
// signature check. Local environments only.
func DebugLogin(ctx context.Context, address persist.EthereumAddress) (string, error) {
	if env.GetString("ENV") != "local" {
		return "", errors.New("DebugLogin may only be used in a local environment")
	}

	return auth.GenerateAuthToken(ctx, address)
}
