package domain

import "time"

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	RelatedID *string
	ReadAt    *time.Time
	CreatedAt time.Time
}

type ActivityEntry struct {
	ID           string
	Action       string
	ResourceType string
	ResourceID   string
	Details      *string
	CreatedAt    time.Time
}
