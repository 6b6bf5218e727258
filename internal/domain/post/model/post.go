package model

import "time"

// PostType 帖子类型
type PostType string

const (
	TypeLost  PostType = "lost"
	TypeFound PostType = "found"
)

// Status 帖子状态
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// TTL 帖子有效期
const TTL = 30 * 24 * time.Hour

// Post 失物/招领帖。ReplyCount 始终等于该帖回复数
type Post struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"postId" firestore:"-"`
	PostType     PostType  `gorm:"type:varchar(8);not null" json:"postType" firestore:"postType"`
	Title        string    `gorm:"type:varchar(200);not null" json:"title" firestore:"title"`
	Description  string    `gorm:"type:text;not null" json:"description" firestore:"description"`
	Location     string    `gorm:"type:varchar(200);not null" json:"location" firestore:"location"`
	Date         time.Time `gorm:"not null" json:"date" firestore:"date"`
	ItemImageURL string    `gorm:"type:text" json:"itemImageURL,omitempty" firestore:"itemImageURL,omitempty"`
	PostedBy     string    `gorm:"type:varchar(36);not null;index" json:"postedBy" firestore:"postedBy"`
	PostedByName string    `gorm:"type:varchar(100);not null" json:"postedByName" firestore:"postedByName"`
	Status       Status    `gorm:"type:varchar(16);not null;default:open" json:"status" firestore:"status"`
	ReplyCount   int       `gorm:"not null;default:0" json:"replyCount" firestore:"replyCount"`
	CreatedAt    time.Time `gorm:"not null;index" json:"createdAt" firestore:"createdAt"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expiresAt" firestore:"expiresAt"`
}

func (Post) TableName() string {
	return "posts"
}

// Expired 到期时间不晚于 now 即视为过期
func (p *Post) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// Reply 回复，创建后不可变
type Reply struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"replyId" firestore:"-"`
	PostID        string    `gorm:"type:varchar(36);not null;index" json:"postId" firestore:"postId"`
	ParentReplyID string    `gorm:"type:varchar(36)" json:"parentReplyId,omitempty" firestore:"parentReplyId,omitempty"`
	RepliedBy     string    `gorm:"type:varchar(36);not null" json:"repliedBy" firestore:"repliedBy"`
	RepliedByName string    `gorm:"type:varchar(100);not null" json:"repliedByName" firestore:"repliedByName"`
	Message       string    `gorm:"type:text;not null" json:"message" firestore:"message"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt" firestore:"createdAt"`
}

func (Reply) TableName() string {
	return "replies"
}
