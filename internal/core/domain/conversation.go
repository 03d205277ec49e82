package domain

import "time"

type Conversation struct {
	UserID         string
	ConversationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ConversationMessage struct {
	ID             string
	UserID         string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}
