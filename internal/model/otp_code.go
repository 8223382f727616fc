package model

import "time"

// OneTimeCode is an outstanding login challenge.  Only the bcrypt hash of
// the code is persisted.
type OneTimeCode struct {
    ID        uint64
    Email     string
    CodeHash  string
    ExpiresAt time.Time
    Attempts  int
    CreatedAt time.Time
}
