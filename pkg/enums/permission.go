package enums

import "fmt"

// Permission is a capability string granted by the external auth service.
type Permission string

const (
	PermissionOrderView       Permission = "order_view"
	PermissionOrderDelete     Permission = "order_delete"
	PermissionOrderDeleteAll  Permission = "order_delete_all"
	PermissionOrderEditStatus Permission = "order_edit_status"
	PermissionReviewView      Permission = "review_view"
	PermissionUserView        Permission = "user_view"
)

var validPermissions = []Permission{
	PermissionOrderView,
	PermissionOrderDelete,
	PermissionOrderDeleteAll,
	PermissionOrderEditStatus,
	PermissionReviewView,
	PermissionUserView,
}

func (p Permission) String() string {
	return string(p)
}

func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// Permissions returns every known permission.
func Permissions() []Permission {
	out := make([]Permission, len(validPermissions))
	copy(out, validPermissions)
	return out
}

func ParsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}
