// Package models defines client-side data models used by the authctl CLI.
package models

// User is the account projection returned by the account service.
type User struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	DID             string `json:"did"`
	Role            string `json:"role"`
	Provider        string `json:"provider,omitempty"`
	PasswordVersion string `json:"passwordVersion,omitempty"`
}

// Login is the reply to a password login.
type Login struct {
	Username     string `json:"username"`
	DID          string `json:"did"`
	Role         string `json:"role"`
	RefreshToken string `json:"refreshToken"`
	WeakPassword bool   `json:"weakPassword"`
}

// PasswordChange is the reply to a successful password change. The old
// refresh tokens stay valid.
type PasswordChange struct {
	Username     string `json:"username"`
	DID          string `json:"did"`
	Role         string `json:"role"`
	RefreshToken string `json:"refreshToken"`
}

// ProviderLogin is the reply to an identity-provider login.
type ProviderLogin struct {
	Username    string `json:"username"`
	DID         string `json:"did"`
	Role        string `json:"role"`
	AccessToken string `json:"accessToken"`
}

// Session is what the CLI keeps between invocations.
type Session struct {
	UserID       string
	Username     string
	RefreshToken string
	AccessToken  string
}

// LoggedIn reports whether s holds a refresh token.
func (s *Session) LoggedIn() bool {
	return s != nil && s.RefreshToken != ""
}
