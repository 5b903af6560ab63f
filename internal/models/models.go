package models

import "time"

type User struct {
	ID        int64
	Username  string
	Name      string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken is the stored side of a refresh token. Only the SHA-256 hash
// of the value handed to the client is kept.
type RefreshToken struct {
	TokenHash string
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the token was explicitly revoked.
func (t RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether now is past the expiry. A token expiring exactly
// at now is still valid.
func (t RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

type Guest struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userID"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Dish struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userID"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DishRank is a guest's preference for a dish: 1 (least) to 3 (favourite).
type DishRank struct {
	ID        int64     `json:"id"`
	GuestID   int64     `json:"guestID"`
	DishID    int64     `json:"dishID"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Meal struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userID"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
}

// MenuItem is one dish of a meal's suggested menu.
type MenuItem struct {
	DishID      int64   `json:"dishId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	AverageRank float64 `json:"averageRank"`
}

// Message is published to the broker and delivered by mail_sender.
type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Purpose string `json:"purpose"`
}
