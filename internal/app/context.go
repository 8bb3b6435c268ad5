package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"taskhub/internal/config"
	"taskhub/internal/engine"
	"taskhub/internal/logging"
	"taskhub/internal/seed"
	"taskhub/internal/session"
	"taskhub/internal/store"
	"taskhub/internal/view"
)

// App is one wired instance of the core: config, seeded store, engine, view
// cache and session issuer.
type App struct {
	Workspace string
	Config    *config.Config
	Log       *logrus.Logger
	Store     *store.Store
	Engine    engine.Engine
	Views     *view.Cache
	Sessions  session.Issuer

	closer io.Closer
}

type Options struct {
	Workspace string
	// JWTSecret signs session tokens. When empty a random per-process secret is
	// used, so tokens do not survive a restart.
	JWTSecret string
	// Logger overrides the configured logger.
	Logger *logrus.Logger
}

// Bootstrap loads taskhub.yml (defaults when absent), reads the entity source
// once and wires the core around the resulting store.
func Bootstrap(opts Options) (*App, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	a := &App{Workspace: opts.Workspace, Config: cfg, Log: opts.Logger}
	if a.Log == nil {
		l, closer, err := logging.New(cfg.Log, opts.Workspace)
		if err != nil {
			return nil, err
		}
		a.Log, a.closer = l, closer
	}
	st, err := seed.NewStore(cfg.SeedPath(opts.Workspace))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load entity source: %w", err)
	}
	a.Store = st
	a.Engine = engine.New(st, a.Log)
	if a.Views, err = view.NewCache(cfg.Cache.Size); err != nil {
		a.Close()
		return nil, err
	}
	secret := []byte(opts.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			a.Close()
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		a.Log.WithField("secret_prefix", hex.EncodeToString(secret[:2])).Debug("using ephemeral session secret")
	}
	a.Sessions = session.Issuer{
		Secret: secret,
		TTL:    time.Duration(cfg.Session.TTLMinutes) * time.Minute,
		Log:    a.Log,
	}
	snap := st.Snapshot()
	a.Log.WithFields(logrus.Fields{
		"tasks": len(snap.Tasks),
		"users": len(snap.Users),
	}).Debug("store seeded")
	return a, nil
}

// Close releases the log file, if any.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Today resolves the reference date for dashboards: the override when given,
// otherwise the current local date.
func (a *App) Today(override string) (time.Time, error) {
	if override == "" {
		return time.Now(), nil
	}
	d, err := time.Parse(time.DateOnly, override)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today %q: want YYYY-MM-DD", override)
	}
	return d, nil
}

// Dashboard derives the dashboard for today over the active collection.
func (a *App) Dashboard(today time.Time) view.Dashboard {
	return view.BuildDashboard(a.Store.Snapshot().Active(), today, a.Config.Board.ShortlistSize)
}
