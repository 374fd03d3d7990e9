package model

import "time"

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

const TableNameUser = "users"

// User is an account that can authenticate against the API.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string    `gorm:"column:role;size:50;not null" json:"role"`
	IsActive     bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"-"`

	TeacherProfile *TeacherProfile `gorm:"foreignKey:UserID" json:"-"`
}

func (*User) TableName() string {
	return TableNameUser
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
