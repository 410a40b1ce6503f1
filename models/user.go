package models

import "time"

type User struct {
	UserID    string    `json:"userid" bson:"userid"`
	Username  string    `json:"username" bson:"username"`
	Email     string    `json:"email" bson:"email"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	Password  string    `json:"-" bson:"password"`
	Role      string    `json:"role" bson:"role"`
	Purchases []string  `json:"purchases,omitempty" bson:"purchases,omitempty"`
	Wishlist  []string  `json:"wishlist,omitempty" bson:"wishlist,omitempty"`
	LastLogin time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// PublicUser is the shape returned to callers; it never carries credentials.
type PublicUser struct {
	UserID    string   `json:"userid" bson:"userid"`
	Username  string   `json:"username" bson:"username"`
	Email     string   `json:"email" bson:"email"`
	Name      string   `json:"name,omitempty" bson:"name,omitempty"`
	Role      string   `json:"role" bson:"role"`
	Purchases []string `json:"purchases,omitempty" bson:"purchases,omitempty"`
	Wishlist  []string `json:"wishlist,omitempty" bson:"wishlist,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Purchases: u.Purchases,
		Wishlist:  u.Wishlist,
	}
}
