package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/trailaccess/trailguide/internal/platform/config"
)

const (
	defaultDialTimeout = 10 * time.Second
	envEmulatorHost    = "FIRESTORE_EMULATOR_HOST"
)

var (
	// ErrProviderClosed is returned once Close has been called.
	ErrProviderClosed = errors.New("firestore: provider is closed")
	// errProjectRequired is returned when no project id is configured.
	errProjectRequired = errors.New("firestore: project id is required")
)

// Provider lazily initialises a shared Firestore client instance. Concurrent callers of
// Client during initialisation wait for the same dial.
type Provider struct {
	cfg         config.FirestoreConfig
	dialTimeout time.Duration

	mu      sync.Mutex
	dialing chan struct{}
	client  *firestore.Client
	dialErr error
	closed  bool
}

// ProviderOption customises the Provider behaviour.
type ProviderOption func(*Provider)

// WithDialTimeout overrides the timeout used when creating the client.
func WithDialTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.dialTimeout = timeout
		}
	}
}

// NewProvider constructs a Provider using the supplied configuration.
func NewProvider(cfg config.FirestoreConfig, opts ...ProviderOption) *Provider {
	provider := &Provider{
		cfg:         cfg,
		dialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider
}

// Collection returns the configured trail guide collection name.
func (p *Provider) Collection() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.cfg.Collection)
}

// Client returns the lazily initialised Firestore client. A failed dial is not cached;
// the next call dials again.
func (p *Provider) Client(ctx context.Context) (*firestore.Client, error) {
	if p == nil {
		return nil, errors.New("firestore: provider is nil")
	}
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrProviderClosed
		}
		if p.client != nil {
			client := p.client
			p.mu.Unlock()
			return client, nil
		}
		if wait := p.dialing; wait != nil {
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-wait:
			}
			p.mu.Lock()
			err := p.dialErr
			p.mu.Unlock()
			if err != nil {
				return nil, err
			}
			continue
		}

		done := make(chan struct{})
		p.dialing = done
		p.dialErr = nil
		p.mu.Unlock()

		client, err := p.createClient(ctx)

		p.mu.Lock()
		p.dialing = nil
		p.dialErr = err
		if err == nil {
			if p.closed {
				_ = client.Close()
				err = ErrProviderClosed
			} else {
				p.client = client
			}
		}
		p.mu.Unlock()
		close(done)

		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func (p *Provider) createClient(ctx context.Context) (*firestore.Client, error) {
	dialCtx := ctx
	if p.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.dialTimeout)
		defer cancel()
	}

	projectID := strings.TrimSpace(p.cfg.ProjectID)
	if projectID == "" {
		return nil, errProjectRequired
	}

	var opts []option.ClientOption
	if host := p.emulatorHost(); host != "" {
		if os.Getenv(envEmulatorHost) == "" {
			_ = os.Setenv(envEmulatorHost, host)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := firestore.NewClient(dialCtx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return client, nil
}

// Close releases the underlying Firestore client. The Provider cannot be reused afterwards.
func (p *Provider) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- client.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (p *Provider) emulatorHost() string {
	if trimmed := strings.TrimSpace(p.cfg.EmulatorHost); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(os.Getenv(envEmulatorHost))
}
