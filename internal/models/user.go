package models

// User exists for the administrative surface only: the access-gate
// bypass and the audit endpoints. There is no end-user registration.
type User struct {
	BaseModel
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(16);not null" json:"role"`
}

func (User) TableName() string {
	return "users"
}
