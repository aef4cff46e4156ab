package model

// Message lifecycle status. A row is inserted as StatusSaving and moves to
// StatusReceive or StatusNoone exactly once, after attachment handling.
const (
	StatusSaving  = "saving"
	StatusReceive = "receive"
	StatusNoone   = "noone"
)

type Message struct {
	Model
	ToEmail    string `gorm:"type:varchar(255);not null;index" json:"to_email"`
	ToName     string `gorm:"type:varchar(255);not null" json:"to_name"`
	SendEmail  string `gorm:"type:varchar(255);not null;index" json:"send_email"`
	SendName   string `gorm:"type:varchar(255);not null" json:"send_name"`
	Subject    string `gorm:"type:text;not null" json:"subject"`
	Content    string `gorm:"type:mediumtext" json:"content"`
	Text       string `gorm:"type:mediumtext" json:"text"`
	Cc         string `gorm:"type:text;not null" json:"cc"`
	Bcc        string `gorm:"type:text;not null" json:"bcc"`
	Recipient  string `gorm:"type:text;not null" json:"recipient"`
	MessageID  string `gorm:"type:varchar(512);not null;index" json:"message_id"`
	InReplyTo  string `gorm:"type:varchar(512)" json:"in_reply_to"`
	References string `gorm:"type:text" json:"references"`
	// UserID and AccountID are 0 when no account matched the recipient.
	UserID    uint64 `gorm:"not null;index" json:"user_id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`
	Status    string `gorm:"type:varchar(16);not null" json:"status"`
	// RawKey is the object storage key of the archived raw message,
	// empty when no object storage is configured or the archive failed.
	RawKey string `gorm:"type:varchar(512)" json:"raw_key"`
}
