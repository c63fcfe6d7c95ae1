// Package otp issues and validates short-lived one-time codes for phone
// number verification. Codes live in a Store keyed by purpose and requester,
// expire after a configured window, and are consumed on first successful
// validation.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// GenerateCode returns a uniformly random six-digit code as a string. The
// range excludes values with a leading zero so the code survives numeric
// round-trips intact.
func GenerateCode() (string, error) {
	span := big.NewInt(codeMax - codeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}
