package models

import "time"

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Gender       string    `json:"gender" db:"gender"`
	Phone        string    `json:"phonenumber" db:"phone"`
	Role         string    `json:"role" db:"role"`
	Photo        string    `json:"photo,omitempty" db:"photo"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Feedback struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Message   string    `json:"feedback" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
