package main

import (
	"github.com/emersion/go-smtp"

	"github.com/shinmk/mailintake/fanout"
	"github.com/shinmk/mailintake/intake"
)

// Backend hands every connection an anonymous session; inbound mail needs
// no authentication, acceptance is the pipeline's decision.
type Backend struct {
	pipeline   *intake.Pipeline
	dispatcher *fanout.Dispatcher
	relay      string
}

func (b *Backend) Login(state *smtp.ConnectionState, username, password string) (smtp.Session, error) {
	return nil, smtp.ErrAuthUnsupported
}

func (b *Backend) AnonymousLogin(state *smtp.ConnectionState) (smtp.Session, error) {
	return &Session{backend: b}, nil
}
