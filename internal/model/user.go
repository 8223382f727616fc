package model

import "time"

// User represents an OTP-authenticated account as stored in the `users`
// table.  Accounts are created on the first successful code verification
// and are soft-deleted (IsDeleted) rather than removed.
//
// Profile fields are nullable: a nil pointer means the field was never set
// or was cleared through the profile endpoints.
type User struct {
    ID        uint64    // users.id
    Email     string    // users.email (unique)
    Name      *string   // users.name
    Mobile    *string   // users.mobile
    Address   *string   // users.address
    IsDeleted bool      // users.is_deleted
    CreatedAt time.Time // users.created_at
    UpdatedAt time.Time // users.updated_at
}

// AdminProfile holds the editable profile of the single configured admin.
type AdminProfile struct {
    Email string
    Name  *string
}

// ProfileField names an editable, nullable user profile column.
type ProfileField string

const (
    FieldName    ProfileField = "name"
    FieldMobile  ProfileField = "mobile"
    FieldAddress ProfileField = "address"
)

// Valid reports whether f is one of the editable profile columns.  Only
// valid fields may be interpolated into SQL.
func (f ProfileField) Valid() bool {
    switch f {
    case FieldName, FieldMobile, FieldAddress:
        return true
    }
    return false
}
