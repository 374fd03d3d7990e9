package model

import "time"

const TableNameTeacherProfile = "teacher_profiles"

// TeacherProfile is the public profile of a teacher; one per user.
type TeacherProfile struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	Bio       string    `gorm:"column:bio;size:500" json:"bio"`
	ImageURL  string    `gorm:"column:image_url;size:255" json:"image_url"`
	IsActive  bool      `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"-"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (*TeacherProfile) TableName() string {
	return TableNameTeacherProfile
}
