package auth

import (
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/navigation"
)

var landingPaths = map[domain.Role]string{
	domain.RoleAdmin:         "/admin/dashboard",
	domain.RoleTourCompany:   "/company/dashboard",
	domain.RoleSpecialtyShop: "/shop/dashboard",
	domain.RoleBlogger:       "/blogger/dashboard",
	// Customers return to where they were.
	domain.RoleCustomer: "",
}

// LandingPath returns where a freshly logged in user is sent.
// Customers, and unknown roles, go back to previous or to the home page.
func LandingPath(role domain.Role, previous string) string {
	if path := landingPaths[domain.ParseRole(string(role))]; path != "" {
		return path
	}
	if previous != "" && previous != navigation.LoginPath {
		return previous
	}
	return navigation.HomePath
}
