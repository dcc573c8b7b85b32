package domain

// Role enumerates the account kinds of the travel platform.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleTourCompany   Role = "tour_company"
	RoleSpecialtyShop Role = "specialty_shop"
	RoleBlogger       Role = "blogger"
	RoleCustomer      Role = "customer"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleTourCompany, RoleSpecialtyShop, RoleBlogger, RoleCustomer}

// ParseRole maps a wire value to a Role. Unknown values get customer behavior.
func ParseRole(value string) Role {
	for _, role := range Roles {
		if string(role) == value {
			return role
		}
	}
	return RoleCustomer
}

// UserProfile is the identity shown by the UI and used for role-based redirects.
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role"`
}

// User is an account known to the development auth API.
type User struct {
	Profile      UserProfile
	PasswordHash string
}
