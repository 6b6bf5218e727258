package model

import (
	"fmt"
	"time"
)

// Type 通知类型
type Type string

const (
	TypeReply     Type = "reply"
	TypeApproval  Type = "approval"
	TypeRejection Type = "rejection"
	TypeMessage   Type = "message"
)

// Notification 站内通知，只有 ReadStatus 可变
type Notification struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"notificationId" firestore:"-"`
	UserID     string    `gorm:"type:varchar(36);not null;index:idx_notifications_user_created,priority:1" json:"userId" firestore:"userId"`
	Type       Type      `gorm:"type:varchar(16);not null" json:"type" firestore:"type"`
	Content    string    `gorm:"type:text;not null" json:"content" firestore:"content"`
	Link       string    `gorm:"type:varchar(255)" json:"link" firestore:"link"`
	ReadStatus bool      `gorm:"not null;default:false" json:"readStatus" firestore:"readStatus"`
	CreatedAt  time.Time `gorm:"not null;index:idx_notifications_user_created,priority:2" json:"createdAt" firestore:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// 通知文案

func ReplyContent(author, postTitle string) string {
	return fmt.Sprintf("%s replied to your %q post.", author, postTitle)
}

func MessageContent(sender, postTitle string) string {
	return fmt.Sprintf("%s sent you a message about %q", sender, postTitle)
}

const (
	ApprovalContent  = "Your account has been approved. Welcome to CampusFind!"
	RejectionContent = "Your account verification was rejected."
	ProfileLink      = "/app/profile"
)

func PostLink(postID string) string {
	return "/app/post/" + postID
}

func ChatLink(postID string) string {
	return "/app/chat/" + postID
}
