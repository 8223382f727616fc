package service

import (
    "crypto/sha256"
    "crypto/subtle"
    "strings"
)

// AdminCredentials is the single configured admin account.
type AdminCredentials struct {
    Email    string
    Password string
}

// Match reports whether email and password identify the admin.  Email is
// compared case-insensitively; both comparisons run in constant time over
// SHA-256 digests so neither length nor prefix leaks.
func (a AdminCredentials) Match(email, password string) bool {
    if a.Email == "" || a.Password == "" {
        return false
    }
    e := digestEqual(strings.ToLower(strings.TrimSpace(email)), strings.ToLower(a.Email))
    p := digestEqual(password, a.Password)
    return e && p
}

func digestEqual(a, b string) bool {
    ha, hb := sha256.Sum256([]byte(a)), sha256.Sum256([]byte(b))
    return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
