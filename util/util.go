package util

import (
	"strings"
)

// Contains reports whether s contains str
func Contains(s []string, str string) bool {
	for _, v := range s {
		if strings.EqualFold(v, str) {
			return true
		}
	}
	return false
}
