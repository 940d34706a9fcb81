package transport

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/toolchain"
)

// Transport copies a local file or directory to a remote path.
type Transport interface {
	Copy(ctx context.Context, localPath, remotePath string) error
}

// Target pairs a transport with its configured base remote location.
type Target struct {
	Transport Transport
	Remote    string
}

// Upload copies localPath to <remote>/<name>.
func (t Target) Upload(ctx context.Context, localPath, name string) error {
	return t.Transport.Copy(ctx, localPath, Join(t.Remote, name))
}

// Join appends name to a remote base, which may be a directory,
// user@host:/path, or an object key prefix.
func Join(base, name string) string {
	if base == "" {
		return name
	}
	if name == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}

// New builds the transport configured by cfg. runner executes the scp client.
func New(cfg config.TransportConfig, runner toolchain.Runner) (Transport, error) {
	switch cfg.Kind {
	case config.TransportLocal, "":
		return Local{}, nil
	case config.TransportSCP:
		return NewSCP(cfg.SCP.Command, cfg.SCP.Args, runner), nil
	case config.TransportS3:
		return NewS3(cfg.S3)
	default:
		return nil, ferrors.ConfigError(fmt.Sprintf("unknown transport kind %q", cfg.Kind)).
			WithContext("kind", string(cfg.Kind)).
			Build()
	}
}

// NewTarget builds a Target from cfg.
func NewTarget(cfg config.TransportConfig, runner toolchain.Runner) (Target, error) {
	t, err := New(cfg, runner)
	if err != nil {
		return Target{}, err
	}
	return Target{Transport: t, Remote: cfg.Remote}, nil
}

func failure(err error, msg, local, remote string) error {
	b := ferrors.TransportFailure(msg).
		WithContext("path", local).
		WithContext("remote", remote)
	if err != nil {
		b = b.WithCause(err)
	}
	return b.Build()
}
