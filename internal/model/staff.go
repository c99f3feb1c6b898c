package model

import "time"

// Staff roles.  The role is carried in the access token and checked
// against the route allow-list on every request.
const (
    RoleSuperAdmin = "super_admin"
    RoleAdmin      = "admin"
    RoleFrontDesk  = "front_desk"
    RoleCoach      = "coach"
)

// StaffRoles lists every valid role.
var StaffRoles = []string{RoleSuperAdmin, RoleAdmin, RoleFrontDesk, RoleCoach}

// ValidRole reports whether r is a known staff role.
func ValidRole(r string) bool {
    for _, s := range StaffRoles {
        if s == r {
            return true
        }
    }
    return false
}

// Staff represents a back-office account as stored in the `staff`
// table.  Members live in `users`; staff never do.
//
// Fields:
//  ID           - primary key identifier of the account.
//  Email        - unique login email (lower-cased).
//  Name         - display name, used as performer name in the audit log.
//  PasswordHash - bcrypt hashed password.
//  Role         - one of the staff roles above.
//  IsActive     - inactive accounts cannot log in.
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type Staff struct {
    ID           uint64    `json:"id"`        // staff.id
    Email        string    `json:"email"`     // staff.email
    Name         string    `json:"name"`      // staff.name
    PasswordHash string    `json:"-"`         // staff.password_hash
    Role         string    `json:"role"`      // staff.role
    IsActive     bool      `json:"isActive"`  // staff.is_active
    CreatedAt    time.Time `json:"createdAt"` // staff.created_at
    UpdatedAt    time.Time `json:"updatedAt"` // staff.updated_at
}

// NewStaff is the body accepted by the staff provisioning endpoint.
type NewStaff struct {
    Email    string `json:"email" validate:"required,email"`
    Name     string `json:"name" validate:"notblank"`
    Password string `json:"password" validate:"required,min=8"`
    Role     string `json:"role" validate:"required,oneof=super_admin admin front_desk coach"`
}
