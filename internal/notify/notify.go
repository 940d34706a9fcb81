// Package notify publishes release announcements.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// Release is the announcement payload sent after a successful upload.
type Release struct {
	Project   string    `json:"project"`
	Label     string    `json:"label"`
	Tag       string    `json:"tag"`
	Artifacts []string  `json:"artifacts"`
	Remote    string    `json:"remote"`
	RunID     string    `json:"run_id"`
	Time      time.Time `json:"time"`
}

// Announcer publishes release announcements.
type Announcer interface {
	Announce(ctx context.Context, r Release) error
}

// Publisher is the subset of a NATS connection used for announcements.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSAnnouncer publishes to one subject.
type NATSAnnouncer struct {
	url     string
	subject string
	connect func(url string) (Publisher, func(), error)
}

// NewNATSAnnouncer returns an announcer that connects on each Announce, so
// an unreachable server only affects the announcement itself.
func NewNATSAnnouncer(url, subject string) *NATSAnnouncer {
	if url == "" {
		url = nats.DefaultURL
	}
	return &NATSAnnouncer{url: url, subject: subject, connect: dialNATS}
}

func dialNATS(url string) (Publisher, func(), error) {
	nc, err := nats.Connect(url, nats.Name("buildmaster"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, nil, err
	}
	return nc, nc.Close, nil
}

func (a *NATSAnnouncer) Announce(ctx context.Context, r Release) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return ferrors.InternalError("failed to marshal release announcement").WithCause(err).Build()
	}

	pub, closeFn, err := a.connect(a.url)
	if err != nil {
		return ferrors.TransportFailure(fmt.Sprintf("connect nats %s", a.url)).
			WithCause(err).
			WithContext("remote", a.url).
			Build()
	}
	defer closeFn()

	if err := pub.Publish(a.subject, payload); err != nil {
		return ferrors.TransportFailure("publish release announcement").
			WithCause(err).
			WithContext("subject", a.subject).
			Build()
	}
	if err := pub.FlushWithContext(ctx); err != nil {
		return ferrors.TransportFailure("flush release announcement").
			WithCause(err).
			WithContext("subject", a.subject).
			Build()
	}
	slog.Info("Release announced", logfields.Label(r.Label), slog.String("subject", a.subject))
	return nil
}

// Nop discards announcements.
type Nop struct{}

func (Nop) Announce(context.Context, Release) error { return nil }
