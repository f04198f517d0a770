package models

// NotificationPreferences stores per-user delivery settings.
type NotificationPreferences struct {
	Email    ChannelPreferences  `json:"email" bson:"email"`
	Push     ChannelPreferences  `json:"push" bson:"push"`
	RealTime RealTimePreferences `json:"realTime" bson:"realTime"`
}

// ChannelPreferences toggles a delivery channel per notification category.
type ChannelPreferences struct {
	TaskAssigned     bool `json:"taskAssigned" bson:"taskAssigned"`
	TaskDue          bool `json:"taskDue" bson:"taskDue"`
	ProjectUpdates   bool `json:"projectUpdates" bson:"projectUpdates"`
	MeetingReminders bool `json:"meetingReminders" bson:"meetingReminders"`
	FeedbackResponse bool `json:"feedbackResponse" bson:"feedbackResponse"`
	SystemAlerts     bool `json:"systemAlerts" bson:"systemAlerts"`
}

// RealTimePreferences controls in-browser presentation of live pushes.
type RealTimePreferences struct {
	Enabled bool `json:"enabled" bson:"enabled"`
	Sound   bool `json:"sound" bson:"sound"`
	Desktop bool `json:"desktop" bson:"desktop"`
}
