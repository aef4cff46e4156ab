package mailparser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/japanese"
)

func init() {
	message.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "iso-2022-jp":
			return japanese.ISO2022JP.NewDecoder().Reader(input), nil
		case "shift_jis", "shift-jis", "sjis":
			return japanese.ShiftJIS.NewDecoder().Reader(input), nil
		case "euc-jp":
			return japanese.EUCJP.NewDecoder().Reader(input), nil
		default:
			return input, nil
		}
	}
}

type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
}

func (a Attachment) Size() int64 {
	return int64(len(a.Content))
}

// Message is the parsed form of one inbound delivery. It is built once per
// delivery and not shared; the only mutation after parsing is content
// redaction by the ban policy.
type Message struct {
	From        Address
	To          []Address
	Cc          []Address
	Bcc         []Address
	Subject     string
	HTML        string
	Text        string
	MessageID   string
	InReplyTo   string
	References  string
	Attachments []Attachment
}

// ToName returns the display name the sender used for the given recipient
// address, or "" when the address does not appear in To.
func (m *Message) ToName(address string) string {
	for _, to := range m.To {
		if strings.EqualFold(to.Address, address) {
			return to.Name
		}
	}
	return ""
}

// FromName returns the sender display name, falling back to the local part
// of the sender address.
func (m *Message) FromName() string {
	if m.From.Name != "" {
		return m.From.Name
	}
	return LocalPart(m.From.Address)
}

// Parse reads one raw RFC 5322 message into a Message. Any structural
// failure is returned as-is; callers treat it as fatal for the delivery.
func Parse(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("create mail reader: %w", err)
	}

	msg := &Message{}
	header := mr.Header

	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	} else if decoded, derr := DecodeHeader(header.Get("Subject")); derr == nil {
		msg.Subject = decoded
	} else {
		msg.Subject = header.Get("Subject")
	}

	msg.From = firstAddress(addressList(&header, "From"))
	msg.To = addressList(&header, "To")
	msg.Cc = addressList(&header, "Cc")
	msg.Bcc = addressList(&header, "Bcc")

	if id, err := header.MessageID(); err == nil && id != "" {
		msg.MessageID = "<" + id + ">"
	} else {
		msg.MessageID = header.Get("Message-Id")
	}
	msg.InReplyTo = header.Get("In-Reply-To")
	msg.References = header.Get("References")

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			if err := readInlinePart(msg, part, h); err != nil {
				return nil, err
			}
		case *mail.AttachmentHeader:
			att, err := readAttachmentPart(part, h)
			if err != nil {
				return nil, err
			}
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	return msg, nil
}

func readInlinePart(msg *Message, part *mail.Part, h *mail.InlineHeader) error {
	mediaType, _, err := h.ContentType()
	if err != nil {
		mediaType = "text/plain"
	}
	mediaType = strings.ToLower(mediaType)

	switch {
	case strings.HasPrefix(mediaType, "text/plain"):
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return fmt.Errorf("read text part: %w", err)
		}
		if msg.Text == "" {
			msg.Text = string(body)
		}
	case strings.HasPrefix(mediaType, "text/html"):
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return fmt.Errorf("read html part: %w", err)
		}
		if msg.HTML == "" {
			msg.HTML = string(body)
		}
	default:
		// Inline non-text part, typically a cid-referenced image.
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return fmt.Errorf("read inline part: %w", err)
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    inlineFilename(h),
			ContentType: mediaType,
			ContentID:   contentID(h.Get("Content-Id")),
			Content:     body,
		})
	}
	return nil
}

func readAttachmentPart(part *mail.Part, h *mail.AttachmentHeader) (Attachment, error) {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		filename = "attachment"
	}
	mediaType, _, err := h.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "application/octet-stream"
	}
	body, err := io.ReadAll(part.Body)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment %s: %w", filename, err)
	}
	return Attachment{
		Filename:    filename,
		ContentType: strings.ToLower(mediaType),
		ContentID:   contentID(h.Get("Content-Id")),
		Content:     body,
	}, nil
}

func inlineFilename(h *mail.InlineHeader) string {
	_, params, err := h.ContentType()
	if err == nil && params["name"] != "" {
		return params["name"]
	}
	if cid := contentID(h.Get("Content-Id")); cid != "" {
		return cid
	}
	return "inline"
}

func contentID(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "<>")
}

func addressList(header *mail.Header, key string) []Address {
	list, err := header.AddressList(key)
	if err != nil || len(list) == 0 {
		return nil
	}
	out := make([]Address, 0, len(list))
	for _, addr := range list {
		out = append(out, Address{Name: addr.Name, Address: addr.Address})
	}
	return out
}

func firstAddress(list []Address) Address {
	if len(list) == 0 {
		return Address{}
	}
	return list[0]
}
