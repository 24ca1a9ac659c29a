package env

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var mu sync.RWMutex
var required = map[string]string{}

// RegisterValidation registers a validation tag for an env variable. Variables
// tagged "required" are checked by VarsLoaded at startup.
func RegisterValidation(key string, tags ...string) {
	mu.Lock()
	defer mu.Unlock()
	required[key] = strings.Join(tags, ",")
}

// VarsLoaded panics if any registered required variable is unset. Call it once
// config defaults have been set.
func VarsLoaded() {
	mu.RLock()
	defer mu.RUnlock()
	for key, tags := range required {
		if strings.Contains(tags, "required") && viper.GetString(key) == "" {
			panic(fmt.Sprintf("required env var %s is not set", key))
		}
	}
}

func GetString(key string) string {
	return viper.GetString(key)
}

func GetInt(key string) int {
	return viper.GetInt(key)
}

func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	return viper.GetBool(key)
}

func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}
