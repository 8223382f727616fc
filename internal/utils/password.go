package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is used when the configured cost is zero.
const DefaultBcryptCost = 10

// HashSecret returns a bcrypt hash of plain using the given cost.  The result
// embeds algorithm, cost and salt, so VerifySecret needs nothing else.
func HashSecret(plain string, cost int) (string, error) {
    if cost <= 0 {
        cost = DefaultBcryptCost
    }
    if cost < bcrypt.MinCost {
        cost = bcrypt.MinCost
    }
    if cost > bcrypt.MaxCost {
        cost = bcrypt.MaxCost
    }
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifySecret safely compares a bcrypt hash and a plain value.  A malformed
// hash simply yields false.
func VerifySecret(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
