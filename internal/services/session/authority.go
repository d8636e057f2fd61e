package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chessroom/chessroom/internal/dependencies/clock"
	"github.com/chessroom/chessroom/internal/dependencies/random"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/storage"
)

// SupersededError reports that a token was invalidated by a newer login.
// It carries the superseding device and time so clients can show a legible
// "logged in elsewhere" explanation instead of a generic auth failure.
type SupersededError struct {
	Device string
	At     time.Time
}

func (e *SupersededError) Error() string {
	return fmt.Sprintf("session superseded by a login from %q at %s", e.Device, e.At.Format(time.RFC3339))
}

// Is makes errors.Is(err, model.ErrSessionSuperseded) match
func (e *SupersededError) Is(target error) bool {
	return target == model.ErrSessionSuperseded
}

// Authority enforces the one-live-session-per-account rule.
//
// Validation is advisory and polled by clients on an interval rather than
// checked on every game action. A superseded client can therefore keep acting
// for up to one poll interval before it is cut off; that staleness window is
// an accepted trade-off, not a bug to fix here.
type Authority struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	pollInterval time.Duration
}

// Config holds configuration for the session Authority
type Config struct {
	// PollInterval is how often clients are told to revalidate
	PollInterval time.Duration
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: 15 * time.Second,
	}
}

// NewAuthority creates a new session Authority
func NewAuthority(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Authority {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Authority{
		storage:      storage,
		clock:        clock,
		random:       random,
		logger:       logger.With(slog.String("component", "session")),
		pollInterval: cfg.PollInterval,
	}
}

// PollInterval returns the interval clients should revalidate on
func (a *Authority) PollInterval() time.Duration {
	return a.pollInterval
}

// StartSession creates a new session for the account, unconditionally
// replacing any existing one. The overwrite is the revocation: the prior
// token stops validating the instant the new record lands.
func (a *Authority) StartSession(ctx context.Context, accountID model.AccountID, device string) (*model.Session, error) {
	now := a.clock.Now()
	session := &model.Session{
		AccountID:  accountID,
		Token:      a.random.Token("sess_"),
		Device:     device,
		StartedAt:  now,
		LastSeenAt: now,
	}

	if err := a.storage.PutSession(ctx, session); err != nil {
		return nil, err
	}

	a.logger.Info("session started",
		slog.String("account", string(accountID)),
		slog.String("device", device))

	return session, nil
}

// ValidateSession checks a token against the account's current session and
// refreshes its last-activity time on success. An invalid token yields either
// model.ErrNoSession or a *SupersededError naming the device that replaced it.
func (a *Authority) ValidateSession(ctx context.Context, accountID model.AccountID, token string) (*model.Session, error) {
	current, err := a.storage.GetSession(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if current.Token != token {
		return nil, &SupersededError{Device: current.Device, At: current.StartedAt}
	}

	now := a.clock.Now()
	if err := a.storage.TouchSessionIfToken(ctx, accountID, token, now); err != nil {
		return nil, err
	}
	current.LastSeenAt = now
	return current, nil
}

// EndSession removes the account's session if the token still owns it.
// A stale token is a no-op, not an error: a late logout from an old client
// must never destroy the session a newer client is using.
func (a *Authority) EndSession(ctx context.Context, accountID model.AccountID, token string) error {
	if err := a.storage.DeleteSessionIfToken(ctx, accountID, token); err != nil {
		return err
	}

	a.logger.Info("session ended", slog.String("account", string(accountID)))
	return nil
}

// IsInvalid reports whether err is one of the validation outcomes rather than
// a storage failure
func IsInvalid(err error) bool {
	return errors.Is(err, model.ErrNoSession) || errors.Is(err, model.ErrSessionSuperseded)
}
