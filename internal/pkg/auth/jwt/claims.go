package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for CampusHub.
// It includes standard claims required by the JWT specification and the custom
// claims needed to identify and authorize a user within the platform.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the unique identifier of the account (UUID string).
	ID string `json:"id"`

	// Role defines the account's role within the school ("admin", "teacher", or "student").
	// Role checks on REST endpoints and notification sends are made against this claim.
	Role string `json:"role"`

	// DisplayName is a denormalized copy of the account's display name, carried
	// so the client can render the signed-in user without an extra fetch.
	DisplayName string `json:"display_name,omitempty"`
}
