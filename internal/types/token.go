package types

// TokenClaims represents the validated claims of an admin JWT token
type TokenClaims struct {
	AdminID  uint
	Username string
}
