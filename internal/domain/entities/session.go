package entities

import "time"

// Session is the credential issued by the backend on login.
type Session struct {
	TokenType             string    `json:"token_type" bson:"token_type"`
	AccessToken           string    `json:"access_token" bson:"access_token"`
	ExpiresAt             int64     `json:"expires_at" bson:"expires_at"`
	RefreshToken          string    `json:"refresh_token" bson:"refresh_token"`
	RefreshTokenExpiresAt int64     `json:"refresh_token_expires_at" bson:"refresh_token_expires_at"`
	SavedAt               time.Time `json:"saved_at,omitempty" bson:"saved_at,omitempty"`
}

// Expired reports whether the access token is past its expiry. A zero
// ExpiresAt means the backend did not say, so the token is assumed valid.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= s.ExpiresAt
}

type User struct {
	ID          string `json:"id" bson:"_id"`
	DisplayName string `json:"display_name" bson:"display_name"`
	Email       string `json:"email" bson:"email"`
}
