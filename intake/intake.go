// Package intake is the per-delivery pipeline: parse the raw message,
// resolve the recipient account, apply ban policy and the keyword filter,
// enforce retention, persist the message and its attachments, and mark the
// row complete. One Deliver call handles exactly one inbound message and
// shares no mutable state with concurrent deliveries.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/shinmk/mailintake/attachment"
	"github.com/shinmk/mailintake/mailparser"
	"github.com/shinmk/mailintake/model"
	"github.com/shinmk/mailintake/policy"
	"github.com/shinmk/mailintake/retention"
)

// Reject reasons surfaced to the inbound transport.
const (
	ReasonSuspended       = "Service suspended"
	ReasonNoRecipient     = "Recipient not found"
	ReasonMailboxDisabled = "Mailbox disabled"
)

type SettingSource interface {
	QuerySettings(ctx context.Context) (model.Settings, error)
}

type AccountSource interface {
	FindAccountByAddressIncludingDeleted(ctx context.Context, address string) (*model.Account, error)
}

type RoleSource interface {
	FindRoleByUserID(ctx context.Context, userID uint64) (*model.Role, error)
}

type MessageStore interface {
	retention.Store
	InsertMessage(ctx context.Context, msg *model.Message) error
	UpdateMessageStatus(ctx context.Context, id uint64, status string) error
	InsertAttachments(ctx context.Context, rows []model.Attachment) error
}

// ObjectStore is the attachment/raw-archive side of object storage.
// PublicURL builds the address inline attachments are served from.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	PutAttachment(ctx context.Context, key string, content []byte, contentType string) error
	PutRaw(ctx context.Context, raw []byte) (string, error)
	PublicURL(domain, key string) string
}

type OutcomeKind int

const (
	// Accepted: the message is durably stored and eligible for fanout.
	Accepted OutcomeKind = iota
	// Rejected: the transport must reject the delivery with Reason.
	Rejected
	// Dropped: discard silently; the transport sees a normal accept.
	Dropped
)

// Outcome is the single observable result of a delivery. Only Rejected
// crosses the pipeline boundary toward the sending host; every internal
// fault collapses into Dropped.
type Outcome struct {
	Kind     OutcomeKind
	Reason   string
	Message  *model.Message
	Settings model.Settings
}

func rejected(reason string) Outcome {
	return Outcome{Kind: Rejected, Reason: reason}
}

func dropped() Outcome {
	return Outcome{Kind: Dropped}
}

// Config is the static part of pipeline behavior; the dynamic switches come
// from the SettingSource on every delivery.
type Config struct {
	AdminAddress        string
	KeywordFilter       []string
	RetentionMaxAge     time.Duration
	RetentionMaxRecords int
}

type Pipeline struct {
	settings SettingSource
	accounts AccountSource
	roles    RoleSource
	store    MessageStore
	objects  ObjectStore // nil when no object storage is configured
	conf     Config
}

func NewPipeline(settings SettingSource, accounts AccountSource, roles RoleSource,
	store MessageStore, objects ObjectStore, conf Config) *Pipeline {
	return &Pipeline{
		settings: settings,
		accounts: accounts,
		roles:    roles,
		store:    store,
		objects:  objects,
		conf:     conf,
	}
}

// Deliver runs the pipeline for one raw message addressed to recipient.
// It never lets an internal fault escape: anything unexpected is logged and
// becomes a silent drop so the sending host is never made to retry-storm.
func (p *Pipeline) Deliver(ctx context.Context, raw []byte, recipient string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("intake: panic during delivery to %s: %v", recipient, r)
			out = dropped()
		}
	}()

	set, err := p.settings.QuerySettings(ctx)
	if err != nil {
		log.Printf("intake: settings query failed: %v", err)
		return dropped()
	}
	if !set.Receive {
		return rejected(ReasonSuspended)
	}

	msg, err := mailparser.Parse(bytes.NewReader(raw))
	if err != nil {
		// Rejecting a malformed message may itself be unsafe; fail safe.
		log.Printf("intake: parse failed for %s: %v", recipient, err)
		return dropped()
	}

	account, err := p.accounts.FindAccountByAddressIncludingDeleted(ctx, recipient)
	if err != nil {
		log.Printf("intake: account lookup failed for %s: %v", recipient, err)
		return dropped()
	}
	if account == nil && !set.NoRecipient {
		return rejected(ReasonNoRecipient)
	}

	if account != nil && !strings.EqualFold(account.Email, p.conf.AdminAddress) {
		switch decision, err := p.evaluatePolicy(ctx, account, msg, recipient); {
		case err != nil:
			log.Printf("intake: policy lookup failed for %s: %v", recipient, err)
			return dropped()
		case decision == policy.RejectMailbox:
			return rejected(ReasonMailboxDisabled)
		case decision == policy.AllowRedacted:
			policy.Redact(msg)
		}
	}

	if p.keywordMatch(msg) {
		log.Printf("intake: keyword filter dropped message from %s subject %q",
			msg.From.Address, msg.Subject)
		return dropped()
	}

	retention.Enforce(ctx, p.store, p.conf.RetentionMaxAge, p.conf.RetentionMaxRecords)

	row := p.buildRow(msg, recipient, account)
	atts, cidAtts := p.identifyAttachments(msg)
	if p.objects != nil {
		if key, err := p.objects.PutRaw(ctx, raw); err != nil {
			log.Printf("intake: raw archive failed for %s: %v", recipient, err)
		} else {
			row.RawKey = key
		}
		if set.ObjectStoreDomain != "" {
			row.Content = resolveInline(row.Content, cidAtts, set.ObjectStoreDomain, p.objects)
		}
	}

	if err := p.store.InsertMessage(ctx, row); err != nil {
		log.Printf("intake: message insert failed for %s: %v", recipient, err)
		return dropped()
	}

	p.persistAttachments(ctx, row, atts)

	status := model.StatusReceive
	if account == nil {
		status = model.StatusNoone
	}
	if err := p.store.UpdateMessageStatus(ctx, row.ID, status); err != nil {
		log.Printf("intake: status update failed for message %d: %v", row.ID, err)
		return dropped()
	}
	row.Status = status

	return Outcome{Kind: Accepted, Message: row, Settings: set}
}

func (p *Pipeline) evaluatePolicy(ctx context.Context, account *model.Account,
	msg *mailparser.Message, recipient string) (policy.Decision, error) {
	role, err := p.roles.FindRoleByUserID(ctx, account.UserID)
	if err != nil {
		return policy.Allow, err
	}
	if role == nil {
		// No role row means no restrictions for this user.
		return policy.Allow, nil
	}
	pol := policy.Policy{
		BanEntries:     role.BanEntries(),
		BanType:        role.BanType,
		AllowedDomains: role.AllowedDomains(),
	}
	return policy.Evaluate(pol, msg, recipient), nil
}

func (p *Pipeline) keywordMatch(msg *mailparser.Message) bool {
	if len(p.conf.KeywordFilter) == 0 {
		return false
	}
	combined := strings.ToLower(msg.From.Address + " " + msg.Subject + " " + msg.Text + " " + msg.HTML)
	for _, kw := range p.conf.KeywordFilter {
		if kw != "" && strings.Contains(combined, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (p *Pipeline) buildRow(msg *mailparser.Message, recipient string, account *model.Account) *model.Message {
	row := &model.Message{
		ToEmail:    recipient,
		ToName:     msg.ToName(recipient),
		SendEmail:  msg.From.Address,
		SendName:   msg.FromName(),
		Subject:    msg.Subject,
		Content:    msg.HTML,
		Text:       msg.Text,
		Cc:         marshalAddresses(msg.Cc),
		Bcc:        marshalAddresses(msg.Bcc),
		Recipient:  marshalAddresses(msg.To),
		MessageID:  msg.MessageID,
		InReplyTo:  msg.InReplyTo,
		References: msg.References,
		Status:     model.StatusSaving,
	}
	if account != nil {
		row.UserID = account.UserID
		row.AccountID = account.ID
	}
	return row
}

// identified pairs a parsed attachment with its content-addressed key.
type identified struct {
	mailparser.Attachment
	Key string
}

func (p *Pipeline) identifyAttachments(msg *mailparser.Message) (all, cid []identified) {
	for _, att := range msg.Attachments {
		id := identified{Attachment: att, Key: attachment.Key(att.Content, att.Filename)}
		all = append(all, id)
		if att.ContentID != "" {
			cid = append(cid, id)
		}
	}
	return all, cid
}

// persistAttachments uploads attachment objects (skipping keys that already
// exist, which is the dedup) and writes the metadata rows. The message row
// is the primary durable artifact; every failure here is logged and
// swallowed.
func (p *Pipeline) persistAttachments(ctx context.Context, row *model.Message, atts []identified) {
	if len(atts) == 0 {
		return
	}

	if p.objects != nil {
		for _, att := range atts {
			exists, err := p.objects.Exists(ctx, att.Key)
			if err != nil {
				log.Printf("intake: attachment exists check failed key=%s: %v", att.Key, err)
				continue
			}
			if exists {
				continue
			}
			if err := p.objects.PutAttachment(ctx, att.Key, att.Content, att.ContentType); err != nil {
				log.Printf("intake: attachment upload failed key=%s: %v", att.Key, err)
			}
		}
	}

	rows := make([]model.Attachment, 0, len(atts))
	for _, att := range atts {
		rows = append(rows, model.Attachment{
			MessageID: row.ID,
			UserID:    row.UserID,
			AccountID: row.AccountID,
			Filename:  att.Filename,
			MimeType:  att.ContentType,
			Size:      att.Size(),
			ContentID: att.ContentID,
			Key:       att.Key,
		})
	}
	if err := p.store.InsertAttachments(ctx, rows); err != nil {
		log.Printf("intake: attachment metadata insert failed for message %d: %v", row.ID, err)
	}
}

// resolveInline rewrites cid: references in the html body to the public
// object storage address of the deduplicated attachment object.
func resolveInline(html string, cidAtts []identified, domain string, objects ObjectStore) string {
	for _, att := range cidAtts {
		html = strings.ReplaceAll(html, "cid:"+att.ContentID, objects.PublicURL(domain, att.Key))
	}
	return html
}

func marshalAddresses(list []mailparser.Address) string {
	if len(list) == 0 {
		return "[]"
	}
	buf, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(buf)
}
