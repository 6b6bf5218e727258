package model

import "time"

// VerificationStatus 审核状态
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusApproved VerificationStatus = "approved"
	StatusRejected VerificationStatus = "rejected"
)

// Valid 是否为已知状态
func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// User 用户模型，USN 唯一
type User struct {
	ID                 string             `gorm:"primaryKey;type:varchar(36)" json:"userId" firestore:"-"`
	FullName           string             `gorm:"type:varchar(100);not null" json:"fullName" firestore:"fullName"`
	USN                string             `gorm:"type:varchar(32);not null;uniqueIndex" json:"usn" firestore:"usn"`
	IDCardImageURL     string             `gorm:"type:text" json:"idCardImageURL" firestore:"idCardImageURL"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"verificationStatus" firestore:"verificationStatus"`
	// NotifiedStatus 最近一次已发出通知的审核状态，与 VerificationStatus 在同一次写入中更新
	NotifiedStatus VerificationStatus `gorm:"type:varchar(16);not null;default:''" json:"-" firestore:"notifiedStatus"`
	CreatedAt      time.Time          `gorm:"not null" json:"createdAt" firestore:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// IsApproved 是否已审核通过
func (u *User) IsApproved() bool {
	return u.VerificationStatus == StatusApproved
}
