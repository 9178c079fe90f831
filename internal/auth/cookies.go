package auth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/pkg/middleware"
)

// UserInfoCookie holds the JSON user summary readable by page scripts.
const UserInfoCookie = "user_info"

// CookieConfig controls session cookie attributes.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// SetSession writes the token and user_info cookies.
func SetSession(w http.ResponseWriter, cfg CookieConfig, token string, info domain.UserInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	maxAge := int(cfg.MaxAge.Seconds())

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     UserInfoCookie,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires both session cookies.
func ClearSession(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{middleware.TokenCookie, UserInfoCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == middleware.TokenCookie,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// UserInfoFromRequest decodes the user_info cookie, if present and valid.
func UserInfoFromRequest(r *http.Request) (domain.UserInfo, bool) {
	c, err := r.Cookie(UserInfoCookie)
	if err != nil {
		return domain.UserInfo{}, false
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return domain.UserInfo{}, false
	}
	var info domain.UserInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return domain.UserInfo{}, false
	}
	return info, true
}
