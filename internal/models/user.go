package models

import "gorm.io/datatypes"

// User roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// User is the subset of the profile record the notification service reads.
// Preferences holds the serialised NotificationPreferences and is null until
// the user saves them for the first time.
type User struct {
	BaseModel `bson:",inline"`

	Name     string `gorm:"not null" json:"name" bson:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	Role     string `gorm:"type:varchar(32);not null;default:'member';index" json:"role" bson:"role"`
	IsActive bool   `gorm:"default:true" json:"isActive" bson:"isActive"`

	Preferences datatypes.JSON `json:"-" bson:"-"`
}
