package models

import "time"

// Project is referenced by notification metadata; only its name is displayed.
type Project struct {
	BaseModel `bson:",inline"`

	Name        string `gorm:"not null" json:"name" bson:"name"`
	Description string `gorm:"type:text" json:"description" bson:"description"`
	OwnerID     string `gorm:"type:uuid;index" json:"ownerId" bson:"ownerId"`
}

// Task is a unit of work inside a project.
type Task struct {
	BaseModel `bson:",inline"`

	ProjectID  string     `gorm:"type:uuid;index" json:"projectId" bson:"projectId"`
	Title      string     `gorm:"not null" json:"title" bson:"title"`
	AssigneeID string     `gorm:"type:uuid;index" json:"assigneeId" bson:"assigneeId"`
	Status     string     `gorm:"type:varchar(32);default:'todo'" json:"status" bson:"status"`
	DueDate    *time.Time `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
}

// Meeting is a scheduled project meeting.
type Meeting struct {
	BaseModel `bson:",inline"`

	ProjectID string    `gorm:"type:uuid;index" json:"projectId" bson:"projectId"`
	Title     string    `gorm:"not null" json:"title" bson:"title"`
	StartsAt  time.Time `json:"startsAt" bson:"startsAt"`
}

// Feedback is a client or team member comment awaiting a response.
type Feedback struct {
	BaseModel `bson:",inline"`

	ProjectID string `gorm:"type:uuid;index" json:"projectId" bson:"projectId"`
	Title     string `gorm:"not null" json:"title" bson:"title"`
	Status    string `gorm:"type:varchar(32);default:'open'" json:"status" bson:"status"`
}

// TableName keeps the feedback table name singular.
func (Feedback) TableName() string {
	return "feedback"
}
