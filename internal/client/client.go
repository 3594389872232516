package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/auth"
	"github.com/opsdeck/opsdeck/internal/call"
	"github.com/opsdeck/opsdeck/internal/common/config"
	"github.com/opsdeck/opsdeck/internal/composer"
	"github.com/opsdeck/opsdeck/internal/directory"
	"github.com/opsdeck/opsdeck/internal/feed"
	"github.com/opsdeck/opsdeck/internal/messaging"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/observability"
	"github.com/opsdeck/opsdeck/internal/playback"
	"github.com/opsdeck/opsdeck/internal/presence"
	"github.com/opsdeck/opsdeck/internal/ratelimit"
	"github.com/opsdeck/opsdeck/internal/signal"
	"github.com/opsdeck/opsdeck/internal/store"
)

// Client bundles the realtime console core: the composer feeds the
// synchronizer, presence and playback react to the feed, and the call
// coordinator runs orthogonally on the push channel.
type Client struct {
	Identity  *auth.Identity
	Directory *directory.Directory
	Composer  *composer.Composer
	Feed      *feed.Synchronizer
	Reads     *presence.ReadTracker
	Typing    *presence.TypingNotifier
	Playback  *playback.Manager
	Calls     *call.Coordinator

	transport signal.Transport
	logger    *zap.Logger
}

type Deps struct {
	Identity  *auth.Identity
	Directory *directory.Directory
	Stores    Stores
	Transport signal.Transport
	Player    playback.Player
	Notifier  notify.Notifier
	Metrics   *observability.Metrics
	Limiter   *ratelimit.Limiter
	Logger    *zap.Logger
}

type Stores struct {
	Messages store.MessageStore
	Presence store.PresenceStore
	Calls    store.CallStore
}

func New(cfg *config.Config, deps Deps) *Client {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	dir := deps.Directory
	if dir == nil {
		dir = directory.New(nil)
	}
	player := deps.Player
	if player == nil {
		player = playback.NopPlayer{}
	}

	c := &Client{
		Identity:  deps.Identity,
		Directory: dir,
		Composer:  composer.New(dir, logger.Named("composer")),
		Reads:     presence.NewReadTracker(deps.Stores.Presence, logger.Named("reads")),
		Typing:    presence.NewTypingNotifier(deps.Stores.Presence, cfg.Typing.Debounce, deps.Limiter, deps.Metrics, logger.Named("typing")),
		Playback:  playback.NewManager(player, notifier, deps.Metrics, logger.Named("playback")),
		Calls:     call.NewCoordinator(deps.Identity.UserID, deps.Stores.Calls, deps.Transport, notifier, deps.Metrics, logger.Named("call")),
		transport: deps.Transport,
		logger:    logger,
	}

	c.Feed = feed.NewSynchronizer(deps.Stores.Messages, deps.Identity.UserID, feed.Options{
		PollInterval:    cfg.Feed.PollInterval,
		PageSize:        cfg.Feed.PageSize,
		BottomTolerance: cfg.Feed.BottomTolerance,
	}, notifier, deps.Metrics, logger.Named("feed"))

	return c
}

// Run subscribes to the push channel and polls the feed until the
// context is cancelled.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		if err := c.transport.Subscribe(ctx, c.Identity.UserID, func(sig signal.Signal) {
			c.Calls.HandleSignal(ctx, sig)
		}); err != nil && ctx.Err() == nil {
			c.logger.Error("signal subscription failed", zap.Error(err))
		}
	}()

	c.Feed.Run(ctx)
	c.Typing.Stop()
	return ctx.Err()
}

// SetScope switches the whole client to a new audience scope: the feed
// restarts its reconciliation, typing signals retarget, and the scope is
// marked read on entry.
func (c *Client) SetScope(ctx context.Context, scope string) {
	c.Feed.SetScope(scope)
	c.Typing.SetScope(scope)
	if err := c.Reads.EnterScope(ctx, scope); err != nil {
		c.logger.Debug("mark scope read failed",
			zap.String("scope", scope),
			zap.Error(err),
		)
	}
}

// Keystroke forwards composer input and restarts the typing debounce.
func (c *Client) Keystroke(text string) {
	c.Composer.InsertText(text)
	c.Typing.Keystroke()
}

// SendDraft encodes the draft buffer to the canonical wire format and
// posts it as a text message to the active scope.
func (c *Client) SendDraft(ctx context.Context) (*messaging.Message, error) {
	if c.Composer.Empty() {
		return nil, nil
	}
	content := c.Composer.Drain()
	return c.Feed.Send(ctx, store.Draft{
		Kind:    messaging.KindText,
		Content: content,
	})
}

// OpenMessage marks a single item read when the user views it.
func (c *Client) OpenMessage(ctx context.Context, messageID string) {
	openCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Reads.OpenItem(openCtx, messageID); err != nil {
		c.logger.Debug("mark item read failed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
