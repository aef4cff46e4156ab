package model

// Setting is the single row of runtime switches. List-valued fields are
// comma-joined at rest and split into Settings by the store.
type Setting struct {
	Model
	Receive           bool   `gorm:"not null;default:true" json:"receive"`
	NoRecipient       bool   `gorm:"not null;default:false" json:"no_recipient"`
	TgBotStatus       bool   `gorm:"not null;default:false" json:"tg_bot_status"`
	TgBotToken        string `gorm:"type:varchar(255)" json:"tg_bot_token"`
	TgChatIDs         string `gorm:"type:text" json:"tg_chat_ids"`
	ForwardStatus     bool   `gorm:"not null;default:false" json:"forward_status"`
	ForwardEmails     string `gorm:"type:text" json:"forward_emails"`
	RuleStatus        bool   `gorm:"not null;default:false" json:"rule_status"`
	RuleEmails        string `gorm:"type:text" json:"rule_emails"`
	ObjectStoreDomain string `gorm:"type:varchar(255)" json:"object_store_domain"`
}

// Settings is the parsed per-delivery view of Setting. It is fetched fresh
// at the start of every delivery; nothing holds a process-wide copy.
type Settings struct {
	Receive           bool
	NoRecipient       bool
	TgBotStatus       bool
	TgBotToken        string
	TgChatIDs         []string
	ForwardStatus     bool
	ForwardEmails     []string
	RuleStatus        bool
	RuleEmails        []string
	ObjectStoreDomain string
}

func (s *Setting) Parsed() Settings {
	return Settings{
		Receive:           s.Receive,
		NoRecipient:       s.NoRecipient,
		TgBotStatus:       s.TgBotStatus,
		TgBotToken:        s.TgBotToken,
		TgChatIDs:         splitList(s.TgChatIDs),
		ForwardStatus:     s.ForwardStatus,
		ForwardEmails:     splitList(s.ForwardEmails),
		RuleStatus:        s.RuleStatus,
		RuleEmails:        splitList(s.RuleEmails),
		ObjectStoreDomain: s.ObjectStoreDomain,
	}
}
