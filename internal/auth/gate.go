package auth

import "crypto/subtle"

// Result is the outcome of a login or logout attempt.
// SetCookie is empty when OK is false.
type Result struct {
	OK        bool
	SetCookie string
}

// Gate answers whether a request is authenticated and builds the session
// cookies handed out at login and logout.
type Gate struct {
	creds    *Credentials
	codec    Codec
	verifier *Verifier
}

// NewGate wires the gate to the startup credentials.
func NewGate(creds *Credentials, codec Codec) *Gate {
	if codec == nil {
		codec = LegacyCodec{}
	}
	return &Gate{
		creds:    creds,
		codec:    codec,
		verifier: NewVerifier(creds),
	}
}

// Token is the only session token currently accepted.
func (g *Gate) Token() string {
	return g.codec.Encode(g.creds.email, g.creds.password)
}

// IsAuthenticated reports whether the raw Cookie header carries the current token.
func (g *Gate) IsAuthenticated(cookieHeader string) bool {
	value, ok := ParseCookieHeader(cookieHeader)[CookieName]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(value), []byte(g.Token())) == 1
}

// BuildLoginCookie returns the Set-Cookie value issued on successful login.
func (g *Gate) BuildLoginCookie(scheme string) string {
	return buildCookie(g.Token(), isHTTPS(scheme), CookieMaxAge)
}

// BuildLogoutCookie returns the Set-Cookie value that clears the session.
func (g *Gate) BuildLogoutCookie(scheme string) string {
	return buildCookie("", isHTTPS(scheme), 0)
}

// Login verifies the candidate credentials. No cookie is issued on failure.
func (g *Gate) Login(email, password, scheme string) Result {
	if !g.verifier.Verify(email, password) {
		return Result{}
	}
	return Result{OK: true, SetCookie: g.BuildLoginCookie(scheme)}
}

// Logout always succeeds, whether or not the caller was authenticated.
func (g *Gate) Logout(scheme string) Result {
	return Result{OK: true, SetCookie: g.BuildLogoutCookie(scheme)}
}
