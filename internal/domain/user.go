package domain

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
}
