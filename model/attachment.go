package model

type Attachment struct {
	Model
	MessageID uint64 `gorm:"not null;index" json:"message_id"`
	UserID    uint64 `gorm:"not null;index" json:"user_id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`
	Filename  string `gorm:"type:varchar(512);not null" json:"filename"`
	MimeType  string `gorm:"type:varchar(255);not null" json:"mime_type"`
	Size      int64  `gorm:"not null" json:"size"`
	ContentID string `gorm:"type:varchar(512)" json:"content_id"`
	// Key is the content-addressed object storage key. Identical bytes
	// with the same extension share a key across messages.
	Key string `gorm:"type:varchar(512);not null;index" json:"key"`
}
