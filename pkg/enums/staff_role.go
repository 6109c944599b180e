package enums

import "fmt"

// StaffRole is the access level a staff member carries inside their tenant.
type StaffRole string

const (
	StaffRoleAdmin   StaffRole = "admin"
	StaffRoleManager StaffRole = "manager"
	StaffRoleClerk   StaffRole = "clerk"
)

var validStaffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleManager,
	StaffRoleClerk,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// AtLeast reports whether the role grants the access of the required role.
// Admin covers manager, manager covers clerk.
func (r StaffRole) AtLeast(required StaffRole) bool {
	rank := map[StaffRole]int{
		StaffRoleClerk:   1,
		StaffRoleManager: 2,
		StaffRoleAdmin:   3,
	}
	have, ok := rank[r]
	if !ok {
		return false
	}
	want, ok := rank[required]
	if !ok {
		return false
	}
	return have >= want
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
