package utils

import (
    "crypto/rand"
    "fmt"
    "math/big"
)

const otpSpace = 1_000_000

// GenerateOTP returns a uniformly distributed, zero-padded 6-digit code.
func GenerateOTP() (string, error) {
    n, err := rand.Int(rand.Reader, big.NewInt(otpSpace))
    if err != nil {
        return "", err
    }
    return fmt.Sprintf("%06d", n.Int64()), nil
}
