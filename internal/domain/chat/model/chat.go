package model

import "time"

// Chat 某个帖子下两名用户之间的一对一会话。
// (PostID, PairKey) 唯一，PairKey 为两个用户 ID 的无序组合。
type Chat struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"chatId" firestore:"-"`
	PostID        string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_chats_post_pair,priority:1" json:"postId" firestore:"postId"`
	PairKey       string     `gorm:"type:varchar(80);not null;uniqueIndex:idx_chats_post_pair,priority:2" json:"-" firestore:"pairKey"`
	UserAID       string     `gorm:"column:user_a_id;type:varchar(36);not null;index" json:"userAId" firestore:"userAId"`
	UserAName     string     `gorm:"column:user_a_name;type:varchar(100);not null" json:"userAName" firestore:"userAName"`
	UserBID       string     `gorm:"column:user_b_id;type:varchar(36);not null;index" json:"userBId" firestore:"userBId"`
	UserBName     string     `gorm:"column:user_b_name;type:varchar(100);not null" json:"userBName" firestore:"userBName"`
	CreatedAt     time.Time  `gorm:"not null" json:"createdAt" firestore:"createdAt"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty" firestore:"lastMessageAt"`
	// Members 仅 Firestore 使用（array-contains 查询）
	Members []string `gorm:"-" json:"-" firestore:"participants"`

	Messages []Message `gorm:"-" json:"messages" firestore:"-"`
}

func (Chat) TableName() string {
	return "chats"
}

// Participants 会话双方 ID，用于 Firestore array-contains 查询
func (c *Chat) Participants() []string {
	return []string{c.UserAID, c.UserBID}
}

// HasParticipant userID 是否为会话一方
func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.UserAID == userID || c.UserBID == userID)
}

// Counterpart 返回另一方的 ID 与名字
func (c *Chat) Counterpart(userID string) (string, string) {
	if c.UserAID == userID {
		return c.UserBID, c.UserBName
	}
	return c.UserAID, c.UserAName
}

// Message 私信，创建后不可变
type Message struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"messageId" firestore:"-"`
	ChatID     string    `gorm:"type:varchar(36);not null;index:idx_messages_chat_ts,priority:1" json:"chatId" firestore:"chatId"`
	SenderID   string    `gorm:"type:varchar(36);not null" json:"senderId" firestore:"senderId"`
	SenderName string    `gorm:"type:varchar(100);not null" json:"senderName" firestore:"senderName"`
	Text       string    `gorm:"type:text;not null" json:"text" firestore:"text"`
	Timestamp  time.Time `gorm:"not null;index:idx_messages_chat_ts,priority:2" json:"timestamp" firestore:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}
