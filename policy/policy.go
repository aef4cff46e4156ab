// Package policy evaluates per-account ban configuration against a parsed
// message and returns a tagged decision; callers switch on the tag instead
// of relying on early returns.
package policy

import (
	"strings"

	"github.com/shinmk/mailintake/mailparser"
)

type Decision int

const (
	// Allow passes the message through untouched.
	Allow Decision = iota
	// RejectMailbox rejects the delivery with the fixed mailbox-disabled
	// reason and stops all further processing.
	RejectMailbox
	// AllowRedacted accepts the message after replacing its content with
	// the redaction placeholder and dropping all attachments.
	AllowRedacted
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RejectMailbox:
		return "reject_mailbox"
	case AllowRedacted:
		return "allow_redacted"
	}
	return "unknown"
}

// Wildcard in a ban list bans every sender.
const Wildcard = "*"

// RedactedPlaceholder replaces body text and html when a content ban fires.
const RedactedPlaceholder = "The content has been deleted"

// Ban actions, matching model.BanType* values.
const (
	BanRejectAll     = "reject_all"
	BanRedactContent = "redact_content"
)

// Policy is an account's ban configuration. Lists arrive already split;
// comma-joined storage is a store-boundary concern.
type Policy struct {
	BanEntries     []string
	BanType        string
	AllowedDomains []string
}

// Evaluate applies the policy to a message addressed to recipient. Rules
// short-circuit in order: allowed-domain gate, wildcard ban, per-entry
// domain or address match. Comparisons are case-insensitive.
func Evaluate(pol Policy, msg *mailparser.Message, recipient string) Decision {
	if !domainAllowed(pol.AllowedDomains, recipient) {
		return RejectMailbox
	}

	for _, entry := range pol.BanEntries {
		if entry == Wildcard {
			return banDecision(pol.BanType)
		}
	}

	sender := strings.ToLower(msg.From.Address)
	senderDomain := mailparser.Domain(sender)
	for _, entry := range pol.BanEntries {
		entry = strings.ToLower(entry)
		if mailparser.IsDomainPattern(entry) {
			if entry == senderDomain {
				return banDecision(pol.BanType)
			}
		} else if entry == sender {
			return banDecision(pol.BanType)
		}
	}

	return Allow
}

// Redact applies the content ban in place: fixed placeholder body, no
// attachments. Eligibility for persistence and fanout is unchanged.
func Redact(msg *mailparser.Message) {
	msg.HTML = RedactedPlaceholder
	msg.Text = RedactedPlaceholder
	msg.Attachments = nil
}

func banDecision(banType string) Decision {
	if banType == BanRedactContent {
		return AllowRedacted
	}
	return RejectMailbox
}

func domainAllowed(allowed []string, recipient string) bool {
	domain := mailparser.Domain(recipient)
	for _, d := range allowed {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return true
		}
	}
	return false
}
