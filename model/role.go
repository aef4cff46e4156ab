package model

import "strings"

// Ban actions taken when a sender matches the ban list.
const (
	BanTypeRejectAll     = "reject_all"
	BanTypeRedactContent = "redact_content"
)

// Role holds the per-user filtering policy. BanEmails and AvailDomains are
// stored as comma-joined strings and split at the store boundary.
type Role struct {
	Model
	UserID       uint64 `gorm:"not null;uniqueIndex" json:"user_id"`
	BanEmails    string `gorm:"type:text;not null" json:"ban_emails"`
	BanType      string `gorm:"type:varchar(32);not null" json:"ban_type"`
	AvailDomains string `gorm:"type:text;not null" json:"avail_domains"`
}

func (r *Role) BanEntries() []string {
	return splitList(r.BanEmails)
}

func (r *Role) AllowedDomains() []string {
	return splitList(r.AvailDomains)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
