package auth

import (
	"net/http"
	"strings"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/pkg/middleware"
)

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

// Guard redirects page requests by session and role:
//
//	no, invalid or roleless token on a tree  -> /login
//	admin on /users/*                        -> /dashboard
//	customer on /dashboard/*                 -> /users
//	/login with a valid session              -> role home
//
// Paths outside both trees pass through unchanged.
func Guard(validate middleware.TokenValidator, cookies CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			tree := pageTree(path)

			var claims *middleware.Claims
			token := sessionToken(r)
			if token != "" {
				if c, err := validate(token); err == nil {
					claims = c
				}
			}

			switch {
			case path == LoginPath:
				if claims != nil {
					if role := domain.Role(claims.Role); role.Valid() {
						redirect(w, r, role.HomePath())
						return
					}
				}
			case tree != "":
				if claims == nil || !domain.Role(claims.Role).Valid() {
					if token != "" {
						ClearSession(w, cookies)
					}
					redirect(w, r, LoginPath)
					return
				}
				if role := domain.Role(claims.Role); role.HomePath() != tree {
					redirect(w, r, role.HomePath())
					return
				}
				r = r.WithContext(middleware.WithClaims(r.Context(), token, claims))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// pageTree returns the protected tree path belongs to, or "".
func pageTree(path string) string {
	for _, tree := range []string{domain.RoleAdmin.HomePath(), domain.RoleCustomer.HomePath()} {
		if path == tree || strings.HasPrefix(path, tree+"/") {
			return tree
		}
	}
	return ""
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(middleware.TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusFound)
}
