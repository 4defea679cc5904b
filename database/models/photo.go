package models

import "time"

// Photo 当前照片记录，表中任意时刻至多一行
type Photo struct {
	ID uint `gorm:"primaryKey"`

	// Image 存储内的相对路径，如 photos/cat.jpg
	Image string `gorm:"size:512;not null"`

	// OriginalFileName 客户端提交的文件名，原样保存
	OriginalFileName string `gorm:"size:255;not null;default:''"`

	UploadedAt time.Time `gorm:"not null"`
}

// TableName 表名
func (Photo) TableName() string {
	return "photos"
}
