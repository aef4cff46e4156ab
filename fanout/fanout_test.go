package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shinmk/mailintake/model"
)

type fakeForwarder struct {
	mu     sync.Mutex
	called []string
	fail   map[string]error
}

func (f *fakeForwarder) Forward(ctx context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, address)
	if err, ok := f.fail[address]; ok {
		return err
	}
	return nil
}

func testMessage() *model.Message {
	return &model.Message{
		Model:     model.Model{ID: 1, CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
		ToEmail:   "user@example.com",
		SendEmail: "sender@spam.com",
		SendName:  "Sender",
		Subject:   "Hi",
		Text:      "hello body",
	}
}

func TestDispatchOneFailingTargetDoesNotAffectSiblings(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ChatID    string `json:"chat_id"`
			ParseMode string `json:"parse_mode"`
			Text      string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if body.ParseMode != "HTML" {
			t.Errorf("parse_mode = %q; want HTML", body.ParseMode)
		}
		mu.Lock()
		seen[body.ChatID]++
		mu.Unlock()
		if body.ChatID == "broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	d := NewDispatcher("UTC")
	d.APIBase = ts.URL

	set := model.Settings{
		TgBotStatus: true,
		TgBotToken:  "token",
		TgChatIDs:   []string{"100", "broken", "200"},
	}

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), testMessage(), set, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Dispatch hung")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, chatID := range set.TgChatIDs {
		if seen[chatID] != 1 {
			t.Errorf("chat %s deliveries = %d; want 1", chatID, seen[chatID])
		}
	}
}

func TestDispatchForwardFailuresAreIsolated(t *testing.T) {
	fwd := &fakeForwarder{fail: map[string]error{
		"dead@example.org": errors.New("relay refused"),
	}}

	set := model.Settings{
		ForwardStatus: true,
		ForwardEmails: []string{"a@example.org", "dead@example.org", "b@example.org"},
	}

	d := NewDispatcher("UTC")
	d.Dispatch(context.Background(), testMessage(), set, fwd)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if len(fwd.called) != 3 {
		t.Errorf("forwards attempted = %d; want 3", len(fwd.called))
	}
}

func TestDispatchRuleGateSkipsAll(t *testing.T) {
	fwd := &fakeForwarder{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("notification sent despite rule gate")
	}))
	defer ts.Close()

	d := NewDispatcher("UTC")
	d.APIBase = ts.URL

	set := model.Settings{
		RuleStatus:    true,
		RuleEmails:    []string{"vip@example.com"},
		TgBotStatus:   true,
		TgBotToken:    "token",
		TgChatIDs:     []string{"100"},
		ForwardStatus: true,
		ForwardEmails: []string{"a@example.org"},
	}

	d.Dispatch(context.Background(), testMessage(), set, fwd)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if len(fwd.called) != 0 {
		t.Errorf("forwards attempted = %d; want 0", len(fwd.called))
	}
}

func TestDispatchRuleGateAllowsListedRecipient(t *testing.T) {
	fwd := &fakeForwarder{}
	set := model.Settings{
		RuleStatus:    true,
		RuleEmails:    []string{"USER@example.com"},
		ForwardStatus: true,
		ForwardEmails: []string{"a@example.org"},
	}

	d := NewDispatcher("UTC")
	d.Dispatch(context.Background(), testMessage(), set, fwd)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if len(fwd.called) != 1 {
		t.Errorf("forwards attempted = %d; want 1", len(fwd.called))
	}
}

func TestFormatNotification(t *testing.T) {
	d := NewDispatcher("UTC")
	msg := testMessage()
	msg.Subject = "Offer <deal>"
	text := d.formatNotification(msg)

	for _, want := range []string{
		"<b>Offer &lt;deal&gt;</b>",
		"&lt;sender@spam.com&gt;",
		"user@example.com",
		"2026-08-30 12:00",
		"hello body",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("notification missing %q:\n%s", want, text)
		}
	}
}

func TestFormatNotificationFallsBackToStrippedHTML(t *testing.T) {
	d := NewDispatcher("UTC")
	msg := testMessage()
	msg.Text = ""
	msg.Content = "<html><body><p>rich <b>content</b></p><script>x()</script></body></html>"
	text := d.formatNotification(msg)

	if !strings.Contains(text, "rich content") {
		t.Errorf("stripped html missing from notification:\n%s", text)
	}
	if strings.Contains(text, "x()") {
		t.Errorf("script content leaked into notification:\n%s", text)
	}
}
