package main

import (
	"bytes"
	"context"
	"io"
	"log"

	"github.com/emersion/go-smtp"

	"github.com/shinmk/mailintake/intake"
)

type Session struct {
	backend *Backend
	from    string
	rcpts   []string
}

func (s *Session) Mail(from string, opts smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *Session) Rcpt(to string) error {
	// Acceptance is decided per recipient in Data; collecting here keeps
	// recipient-specific rejects out of the RCPT phase.
	s.rcpts = append(s.rcpts, to)
	return nil
}

// Data runs the intake pipeline once per recipient. Only a pipeline reject
// surfaces to the peer; accepted messages are fanned out before the
// delivery is acknowledged, so no forward or notification is left in
// flight when the session moves on.
func (s *Session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var rejectErr error
	for _, rcpt := range s.rcpts {
		outcome := s.backend.pipeline.Deliver(ctx, raw, rcpt)
		switch outcome.Kind {
		case intake.Rejected:
			log.Printf("smtpd: rejected delivery to %s: %s", rcpt, outcome.Reason)
			if rejectErr == nil {
				rejectErr = &smtp.SMTPError{
					Code:         550,
					EnhancedCode: smtp.EnhancedCode{5, 7, 1},
					Message:      outcome.Reason,
				}
			}
		case intake.Accepted:
			fwd := &smtpForwarder{
				relay: s.backend.relay,
				from:  s.from,
				raw:   raw,
			}
			s.backend.dispatcher.Dispatch(ctx, outcome.Message, outcome.Settings, fwd)
		}
	}
	return rejectErr
}

func (s *Session) Reset() {
	s.from = ""
	s.rcpts = nil
}

func (s *Session) Logout() error {
	return nil
}

// smtpForwarder is the per-delivery forward primitive: it replays the raw
// message to another address through the configured relay.
type smtpForwarder struct {
	relay string
	from  string
	raw   []byte
}

func (f *smtpForwarder) Forward(ctx context.Context, address string) error {
	return smtp.SendMail(f.relay, nil, f.from, []string{address}, bytes.NewReader(f.raw))
}
