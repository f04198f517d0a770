package models

import "time"

// SystemSetting is a key/value row for installation-wide state: the schema
// version and the persisted JWT signing secret.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName keeps the table name independent of the struct name.
func (SystemSetting) TableName() string {
	return "system_settings"
}
