// Package firebase initialises the Firebase app and hands out its clients on demand,
// so a deployment that never touches Firebase never needs credentials.
package firebase

import (
	"context"
	"log/slog"
	"sync"

	"agency/config"
	"agency/internal/errors"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/fx"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned when a Firebase client is requested without a firebase config section.
var ErrNotConfigured = errors.New("firebase is not configured")

// AppProvider lazily creates the Firebase app and its clients.
type AppProvider struct {
	ctx    context.Context
	cfg    *config.FirebaseConfig
	logger *slog.Logger

	appOnce sync.Once
	app     *firebase.App
	appErr  error

	mu        sync.Mutex
	firestore *firestore.Client
	auth      *auth.Client
	messaging *messaging.Client
}

// AppProviderParams holds dependencies for AppProvider, injected by Fx
type AppProviderParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewAppProvider creates the provider and closes the Firestore client on shutdown.
func NewAppProvider(params AppProviderParams) *AppProvider {
	p := &AppProvider{
		ctx:    params.Ctx,
		cfg:    params.Config.Firebase,
		logger: params.Logger.With("component", "firebase"),
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})

	return p
}

// App returns the initialised Firebase app.
func (p *AppProvider) App() (*firebase.App, error) {
	p.appOnce.Do(func() {
		if p.cfg == nil {
			p.appErr = ErrNotConfigured

			return
		}

		opts := make([]option.ClientOption, 0, 1)
		if p.cfg.CredentialsPath != "" {
			opts = append(opts, option.WithCredentialsFile(p.cfg.CredentialsPath))
		}

		app, err := firebase.NewApp(p.ctx, &firebase.Config{ProjectID: p.cfg.ProjectID}, opts...)
		if err != nil {
			p.appErr = errors.Wrap(err, "failed to initialize Firebase app")

			return
		}

		p.logger.Info("Firebase app initialized", slog.String("project_id", p.cfg.ProjectID))
		p.app = app
	})

	return p.app, p.appErr
}

// Firestore returns the shared Firestore client.
func (p *AppProvider) Firestore() (*firestore.Client, error) {
	app, err := p.App()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.firestore == nil {
		client, err := app.Firestore(p.ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get firestore client")
		}
		p.firestore = client
	}

	return p.firestore, nil
}

// Auth returns the Firebase Auth client.
func (p *AppProvider) Auth() (*auth.Client, error) {
	app, err := p.App()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.auth == nil {
		client, err := app.Auth(p.ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get auth client")
		}
		p.auth = client
	}

	return p.auth, nil
}

// Messaging returns the Cloud Messaging client.
func (p *AppProvider) Messaging() (*messaging.Client, error) {
	app, err := p.App()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.messaging == nil {
		client, err := app.Messaging(p.ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get messaging client")
		}
		p.messaging = client
	}

	return p.messaging, nil
}

// Close releases the Firestore client if one was opened.
func (p *AppProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.firestore == nil {
		return nil
	}

	err := p.firestore.Close()
	p.firestore = nil

	return errors.WithStack(err)
}
