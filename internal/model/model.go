package model

// Document is the unit of export and import. Data is an arbitrary
// JSON-compatible mapping; ID identifies the document within its collection
// and must survive a backup/restore round trip.
type Document struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// LoginAttempt tracks failed sign-in attempts for one normalized email.
// BlockedUntil is an epoch-millisecond timestamp, 0 when not blocked.
type LoginAttempt struct {
	Email        string `json:"email" dynamodbav:"email"`
	Attempts     int    `json:"attempts" dynamodbav:"attempts"`
	BlockedUntil int64  `json:"blockedUntil" dynamodbav:"blocked_until"`
}

// UserProfile is the profile document stored in the "users" collection.
type UserProfile struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"passwordHash"`
	PasswordSalt string `json:"passwordSalt"`
}

// Roles recognized in the role claim and in user profiles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
