package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raine/storefront/internal/auth"
)

const (
	DefaultWatchdogInterval  = 30 * time.Second
	DefaultWatchdogThreshold = 60 * time.Second
)

// WatchdogState is idle while no token pair is stored and armed otherwise.
type WatchdogState int

const (
	WatchdogIdle WatchdogState = iota
	WatchdogArmed
)

func (s WatchdogState) String() string {
	if s == WatchdogArmed {
		return "armed"
	}
	return "idle"
}

// TickResult describes what a single watchdog tick did.
type TickResult int

const (
	TickIdle TickResult = iota
	TickNoop
	TickRefreshed
	TickRefreshFailed
	TickLoggedOut
)

func (r TickResult) String() string {
	switch r {
	case TickNoop:
		return "noop"
	case TickRefreshed:
		return "refreshed"
	case TickRefreshFailed:
		return "refresh_failed"
	case TickLoggedOut:
		return "logged_out"
	default:
		return "idle"
	}
}

type WatchdogOpts struct {
	Interval  time.Duration
	Threshold time.Duration
	Now       func() time.Time
}

// Watchdog refreshes the access token shortly before it expires, independent
// of request traffic.
type Watchdog struct {
	mgr       *Manager
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	wake      chan struct{}
}

// NewWatchdog creates a watchdog for mgr. It follows the manager's session
// changes; Run must be called to start ticking.
func NewWatchdog(mgr *Manager, opts WatchdogOpts) *Watchdog {
	w := &Watchdog{
		mgr:       mgr,
		interval:  opts.Interval,
		threshold: opts.Threshold,
		now:       opts.Now,
		wake:      make(chan struct{}, 1),
	}
	if w.interval <= 0 {
		w.interval = DefaultWatchdogInterval
	}
	if w.threshold <= 0 {
		w.threshold = DefaultWatchdogThreshold
	}
	if w.now == nil {
		w.now = time.Now
	}

	mgr.Subscribe(func(Change) {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	})
	return w
}

// State reports whether the watchdog is armed.
func (w *Watchdog) State() WatchdogState {
	if w.mgr.LoggedIn() {
		return WatchdogArmed
	}
	return WatchdogIdle
}

// Run ticks while armed until ctx is cancelled. The ticker is stopped as soon
// as the session ends and restarted on the next login.
func (w *Watchdog) Run(ctx context.Context) error {
	var ticker *time.Ticker
	var tickC <-chan time.Time

	arm := func() {
		if ticker != nil {
			return
		}
		ticker = time.NewTicker(w.interval)
		tickC = ticker.C
		log.Debug().Dur("interval", w.interval).Msg("watchdog armed")
	}
	disarm := func() {
		if ticker == nil {
			return
		}
		ticker.Stop()
		ticker = nil
		tickC = nil
		log.Debug().Msg("watchdog disarmed")
	}
	follow := func() {
		if w.State() == WatchdogArmed {
			arm()
		} else {
			disarm()
		}
	}

	log.Info().Dur("interval", w.interval).Dur("threshold", w.threshold).Msg("starting expiry watchdog")
	follow()

	for {
		select {
		case <-ctx.Done():
			disarm()
			log.Info().Msg("stopping expiry watchdog")
			return ctx.Err()
		case <-w.wake:
			follow()
		case <-tickC:
			w.Tick(ctx)
		}
	}
}

// Tick evaluates the current access token once. A token expiring within the
// threshold is refreshed; a token whose expiry cannot be decoded ends the
// session.
func (w *Watchdog) Tick(ctx context.Context) TickResult {
	access := w.mgr.AccessToken()
	if access == "" {
		return TickIdle
	}

	expiresAt, err := auth.ExpiresAt(access)
	if err != nil {
		w.mgr.ForceLogout(ctx, err)
		return TickLoggedOut
	}

	remaining := expiresAt.Sub(w.now())
	if remaining >= w.threshold {
		log.Debug().Dur("remaining", remaining).Msg("access token still fresh")
		return TickNoop
	}

	log.Info().Dur("remaining", remaining).Msg("access token about to expire")
	if _, err := w.mgr.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("watchdog refresh failed")
		return TickRefreshFailed
	}
	return TickRefreshed
}
