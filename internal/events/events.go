// Package events publishes listing lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"campus-market/internal/config"
	"campus-market/internal/listing"
	"campus-market/internal/logger"
)

// Event types, appended to the subject prefix: market.listing.created.
const (
	ListingCreated = "listing.created"
	ListingUpdated = "listing.updated"
	ListingDeleted = "listing.deleted"
)

// Event is the JSON payload of every message.
type Event struct {
	Type    string           `json:"type"`
	Kind    listing.Kind     `json:"kind"`
	ID      string           `json:"id"`
	OwnerID string           `json:"ownerId"`
	At      time.Time        `json:"at"`
	Listing *listing.Listing `json:"listing,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Noop drops every event. It is used when NATS is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	IsClosed() bool
	Close()
}

// NATS publishes events on "<prefix>.<type>" subjects.
type NATS struct {
	nc     conn
	prefix string
}

// Connect dials NATS. An empty URL yields a Noop publisher.
func Connect(cfg config.NATSConfig) (Publisher, error) {
	if cfg.URL == "" {
		return Noop{}, nil
	}

	opts := []nats.Option{
		nats.Name("campus-market"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Infof("nats connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("nats disconnected: %v", err)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Infof("connected to nats at %s", nc.ConnectedUrl())
	return newNATS(nc, cfg.SubjectPrefix), nil
}

func newNATS(nc conn, prefix string) *NATS {
	return &NATS{nc: nc, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func (p *NATS) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *NATS) Publish(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	subject := p.Subject(e.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	logger.Debugf("published %s %s/%s", subject, e.Kind, e.ID)
	return nil
}

func (p *NATS) Close() {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logger.Errorf("nats drain: %v", err)
	}
	p.nc.Close()
}
