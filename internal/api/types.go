package api

import (
	"strconv"
	"time"
)

// ConversationType distinguishes the two directory entry kinds. Two
// conversations of different type may share a numeric id, so the composite
// (Type, ID) is the directory key.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// User is the backend's user reference as embedded in messages and the
// contacts list.
type User struct {
	ID        int64  `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Message is one direct message. Group messages reuse the shape with a
// zero Receiver.
type Message struct {
	ID          int64     `json:"id"`
	Sender      User      `json:"sender"`
	Receiver    User      `json:"receiver"`
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sent_at"`
	IsRead      bool      `json:"is_read"`
	CourseID    int64     `json:"course_id,omitempty"`
	CourseTitle string    `json:"course_title,omitempty"`
}

// Conversation is one normalized directory entry.
type Conversation struct {
	ID          int64
	Type        ConversationType
	Name        string
	AvatarURL   string
	LastPreview string
	LastTime    time.Time
	UnreadCount int
}

// Key returns the directory's composite key.
func (c Conversation) Key() string {
	return string(c.Type) + ":" + itoa(c.ID)
}

// conversationWire accepts both directory item shapes the backend is known
// to produce: the flat {id, type, name, ...} form and the nested
// {conversation_user: {...}, last_message, ...} form.
type conversationWire struct {
	ID               int64            `json:"id"`
	Type             ConversationType `json:"type"`
	Name             string           `json:"name"`
	AvatarURL        string           `json:"avatar"`
	LastPreview      string           `json:"last_message_preview"`
	LastTime         *time.Time       `json:"last_message_time"`
	UnreadCount      int              `json:"unread_count_for_current_user"`
	ConversationUser *User            `json:"conversation_user"`
	LastMessage      *Message         `json:"last_message"`
}

func (w conversationWire) normalize() Conversation {
	c := Conversation{
		ID:          w.ID,
		Type:        w.Type,
		Name:        w.Name,
		AvatarURL:   w.AvatarURL,
		LastPreview: w.LastPreview,
		UnreadCount: w.UnreadCount,
	}
	if w.LastTime != nil {
		c.LastTime = *w.LastTime
	}
	if w.ConversationUser != nil {
		c.ID = w.ConversationUser.ID
		if c.Type == "" {
			c.Type = ConversationDirect
		}
		if c.Name == "" {
			c.Name = w.ConversationUser.FullName
		}
		if c.AvatarURL == "" {
			c.AvatarURL = w.ConversationUser.AvatarURL
		}
	}
	if w.LastMessage != nil && c.LastPreview == "" {
		c.LastPreview = w.LastMessage.Content
		if c.LastTime.IsZero() {
			c.LastTime = w.LastMessage.SentAt
		}
	}
	if c.Type == "" {
		c.Type = ConversationDirect
	}
	return c
}

// Group is one course group the user belongs to.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CourseID    int64  `json:"course_id,omitempty"`
	CourseTitle string `json:"course_title,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
	UnreadCount int    `json:"unread_count_for_current_user,omitempty"`
	LastPreview string `json:"last_message_preview,omitempty"`
	LastTime    *time.Time `json:"last_message_time,omitempty"`
}

// TypingStatus is the server-reported typing state for one peer.
type TypingStatus struct {
	IsTyping  bool       `json:"is_typing"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Notification is one system notification.
type Notification struct {
	ID          int64     `json:"id"`
	Type        string    `json:"notification_type,omitempty"`
	Title       string    `json:"title"`
	MessageText string    `json:"message"`
	CourseID    int64     `json:"course_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
