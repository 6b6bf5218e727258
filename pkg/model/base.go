package model

import (
	"time"

	"github.com/google/uuid"
)

// NewID 生成记录主键（UUID 字符串），所有存储驱动共用
func NewID() string {
	return uuid.New().String()
}

// Clock 可注入的时间源，测试中替换为固定时间
type Clock func() time.Time

// Now 返回当前时间；nil 时使用系统时间
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
