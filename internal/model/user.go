package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"primaryEmail"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
