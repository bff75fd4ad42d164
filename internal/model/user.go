package model

import "time"

// Role names carried in the JWT "role" claim.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = "ADMIN"
)

// User is the read-only view of an account.  Accounts are created and
// authenticated by the identity service sharing the users table; this
// service only resolves them when a booking is made.
//
// Fields:
//  ID        – primary key identifier of the user.
//  Name      – display name.
//  Email     – unique email address.
//  Role      – CUSTOMER or ADMIN.
//  CreatedAt – timestamp of creation.
type User struct {
    ID        uint64    // users.id
    Name      string    // users.name
    Email     string    // users.email
    Role      string    // users.role
    CreatedAt time.Time // users.created_at
}
