//go:build !debug_tools
// +build !debug_tools

package debugtools

import (
	"context"
	"errors"

	"github.com/rentfi/go-rentfi/service/persist"
)

const Enabled bool = false

// DebugLogin is compiled out of normal builds
func DebugLogin(ctx context.Context, address persist.EthereumAddress) (string, error) {
	return "", errors.New("debug tools are not enabled in this build")
}
