// Package fanout delivers notifications about an accepted message to every
// configured downstream target concurrently. Targets are independent: one
// failing target is logged and never affects its siblings, and Dispatch
// returns only after every delivery has settled.
package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shinmk/mailintake/mailparser"
	"github.com/shinmk/mailintake/model"
)

const defaultAPIBase = "https://api.telegram.org"

// Forwarder is the transport-level forward primitive supplied by the
// inbound host for the current delivery.
type Forwarder interface {
	Forward(ctx context.Context, address string) error
}

type Dispatcher struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
	// APIBase overrides the Telegram API base address, for tests.
	APIBase string
	// Location localizes the timestamp in notification text.
	Location *time.Location
}

func NewDispatcher(tz string) *Dispatcher {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return &Dispatcher{Location: loc}
}

// result is one settled delivery attempt, aggregated only for logging.
type result struct {
	class  string
	target string
	err    error
}

// Dispatch fans the accepted message out to the configured telegram chats
// and forward addresses. All targets run concurrently; Dispatch joins on
// every one of them and never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *model.Message, set model.Settings, fwd Forwarder) {
	if set.RuleStatus && !containsFold(set.RuleEmails, msg.ToEmail) {
		return
	}

	notify := set.TgBotStatus && set.TgBotToken != "" && len(set.TgChatIDs) > 0
	forward := set.ForwardStatus && fwd != nil && len(set.ForwardEmails) > 0
	if !notify && !forward {
		return
	}

	var targets int
	if notify {
		targets += len(set.TgChatIDs)
	}
	if forward {
		targets += len(set.ForwardEmails)
	}
	results := make(chan result, targets)

	var wg sync.WaitGroup
	if notify {
		text := d.formatNotification(msg)
		for _, chatID := range set.TgChatIDs {
			wg.Add(1)
			go func(chatID string) {
				defer wg.Done()
				results <- result{
					class:  "telegram",
					target: chatID,
					err:    d.sendTelegram(ctx, set.TgBotToken, chatID, text),
				}
			}(chatID)
		}
	}
	if forward {
		for _, addr := range set.ForwardEmails {
			wg.Add(1)
			go func(addr string) {
				defer wg.Done()
				results <- result{
					class:  "forward",
					target: addr,
					err:    fwd.Forward(ctx, addr),
				}
			}(addr)
		}
	}

	wg.Wait()
	close(results)
	for r := range results {
		if r.err != nil {
			log.Printf("fanout: %s delivery to %s failed: %v", r.class, r.target, r.err)
		} else {
			log.Printf("fanout: %s delivery to %s ok", r.class, r.target)
		}
	}
}

func (d *Dispatcher) sendTelegram(ctx context.Context, token, chatID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"parse_mode": "HTML",
		"text":       text,
	})
	if err != nil {
		return err
	}

	base := d.APIBase
	if base == "" {
		base = defaultAPIBase
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("telegram responded %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) formatNotification(msg *model.Message) string {
	body := msg.Text
	if body == "" {
		body = mailparser.HTMLToText(msg.Content)
	}
	ts := msg.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("<b>%s</b>\n\n<b>From:</b> %s &lt;%s&gt;\n<b>To:</b> %s\n<b>Time:</b> %s\n\n%s",
		html.EscapeString(msg.Subject),
		html.EscapeString(msg.SendName),
		html.EscapeString(msg.SendEmail),
		html.EscapeString(msg.ToEmail),
		ts.In(loc).Format("2006-01-02 15:04"),
		html.EscapeString(body),
	)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
