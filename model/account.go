package model

type Account struct {
	Model
	UserID uint64 `gorm:"not null;index" json:"user_id"`
	Email  string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
}
