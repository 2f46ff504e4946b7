package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// Fingerprint identifies a report query by name and its parameters, for
// use as a cache key.
func Fingerprint(name string, params ...string) string {
	return HashString(name + "\x00" + strings.Join(params, "\x00"))
}
