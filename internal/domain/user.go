package domain

// Role is the access role carried in the session token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// HomePath returns the page tree a role lands on after login.
func (r Role) HomePath() string {
	if r == RoleAdmin {
		return "/dashboard"
	}
	return "/users"
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// User is a storefront account as returned by the backend.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"lastName,omitempty"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
	Areas    []Area `json:"areas,omitempty"`
}

// UserInfo is the non-sensitive subset of User stored in the user_info cookie.
type UserInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Info returns the cookie-safe projection of u.
func (u User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
