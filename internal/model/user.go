package model

// User is a dashboard account. The password is only ever held as a bcrypt
// hash.
type User struct {
	BaseEntity
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
}
