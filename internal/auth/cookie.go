package auth

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// CookieName is the session cookie carrying the token.
	CookieName = "expense_auth"

	// CookieMaxAge is one year in seconds.
	CookieMaxAge = 60 * 60 * 24 * 365
)

// ParseCookieHeader splits a raw Cookie header into name/value pairs.
//
// Segments are separated by ';' and trimmed, then split on the first '='.
// Only the value is percent-decoded; a value that fails to decode is kept as
// is. Segments without '=' are skipped and later duplicates win.
func ParseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	if header == "" {
		return cookies
	}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		cookies[name] = value
	}
	return cookies
}

// CookieHeader joins every Cookie header of r; HTTP/2 clients may send several.
func CookieHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Cookie"), "; ")
}

// buildCookie renders a Set-Cookie header value for the session cookie.
func buildCookie(value string, secure bool, maxAge int) string {
	var b strings.Builder
	b.WriteString(CookieName)
	b.WriteByte('=')
	b.WriteString(encodeURIComponent(value))
	b.WriteString("; Path=/; HttpOnly; SameSite=Lax; Max-Age=")
	b.WriteString(strconv.Itoa(maxAge))
	if secure {
		b.WriteString("; Secure")
	}
	return b.String()
}

// encodeURIComponent matches the browser function for every byte a token can contain.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func isHTTPS(scheme string) bool {
	return strings.EqualFold(scheme, "https")
}
