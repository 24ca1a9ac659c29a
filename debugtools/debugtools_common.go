// debugtools_common.go is always compiled and is not dependent on a build tag.
// It contains shared code used by both debugtools_enabled.go and debugtools_disabled.go.

package debugtools

import (
	"github.com/rentfi/go-rentfi/env"
)

func IsDebugEnv() bool {
	currentEnv := env.GetString("ENV")
	return currentEnv == "local" || currentEnv == "development" || currentEnv == "sandbox"
}
