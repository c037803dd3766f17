package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/victorivanov/retroterm/internal/models"
	"github.com/victorivanov/retroterm/internal/transport"
)

const loadMessagesTimeout = 10 * time.Second

// DMCache is the authoritative local view of the session user's DM
// channels. Channels are ordered most-recently-touched first. All lookups
// compare canonical int64 IDs.
//
// Listing and creation are best effort: transport or application failures
// are logged and surfaced as empty/absent results, never as errors. Only
// StartFromSearch distinguishes a meaningful not-found outcome, which it
// propagates as a typed error.
type DMCache struct {
	api    transport.API
	view   ChatView
	selfID models.ID
	log    *slog.Logger

	mu       sync.Mutex
	channels []models.DMChannel
	current  *models.DMChannel
}

// NewDMCache creates an empty DMCache for the given session user.
func NewDMCache(api transport.API, view ChatView, selfID models.ID, log *slog.Logger) *DMCache {
	if view == nil {
		view = NopView{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &DMCache{
		api:    api,
		view:   view,
		selfID: selfID,
		log:    log,
	}
}

// LoadAll fetches the full DM channel list and replaces the cache contents.
// On failure the cache is left unchanged and an empty slice is returned;
// DM listing is supplementary to core chat function, so failures degrade
// rather than propagate.
func (c *DMCache) LoadAll(ctx context.Context) []models.DMChannel {
	channels, err := c.api.ListDMs(ctx)
	if err != nil {
		c.log.Warn("loading DM channels failed", "error", err)
		return []models.DMChannel{}
	}

	c.mu.Lock()
	c.channels = make([]models.DMChannel, len(channels))
	copy(c.channels, channels)
	out := make([]models.DMChannel, len(channels))
	copy(out, channels)
	c.mu.Unlock()

	return out
}

// CreateOrGet asks the server for the DM channel with the given counterpart,
// creating it if needed, and upserts the result. An already-cached channel
// is replaced and promoted to the front; a new one is inserted at the front.
// Returns (nil, false) on failure.
func (c *DMCache) CreateOrGet(ctx context.Context, counterpartID models.ID) (*models.DMChannel, bool) {
	ch, err := c.api.CreateDM(ctx, counterpartID)
	if err != nil {
		c.log.Warn("creating DM channel failed", "counterpartID", counterpartID, "error", err)
		return nil, false
	}

	c.Upsert(*ch)

	got := *ch
	return &got, true
}

// Get fetches a single channel by ID straight from the server. It is a pure
// read-through: the cache is never mutated, even on success. Returns
// (nil, false) on failure.
func (c *DMCache) Get(ctx context.Context, channelID models.ID) (*models.DMChannel, bool) {
	ch, err := c.api.GetDM(ctx, channelID)
	if err != nil {
		c.log.Warn("fetching DM channel failed", "channelID", channelID, "error", err)
		return nil, false
	}
	got := *ch
	return &got, true
}

// Upsert inserts ch at the front of the list, first removing any cached
// entry with the same ID. Also called by the gateway when the server pushes
// a channel-create event, keeping the cache coherent with remote state.
func (c *DMCache) Upsert(ch models.DMChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.channels {
		if c.channels[i].ID == ch.ID {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			break
		}
	}
	c.channels = append([]models.DMChannel{ch}, c.channels...)
}

// FindByParticipant returns the first cached channel whose recipients
// include userID. Linear scan; the list is bounded by friend-list size.
func (c *DMCache) FindByParticipant(userID models.ID) (*models.DMChannel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.channels {
		if c.channels[i].HasRecipient(userID) {
			got := c.channels[i]
			return &got, true
		}
	}
	return nil, false
}

// FindByID returns the cached channel with the given ID.
func (c *DMCache) FindByID(channelID models.ID) (*models.DMChannel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.channels {
		if c.channels[i].ID == channelID {
			got := c.channels[i]
			return &got, true
		}
	}
	return nil, false
}

// StartFromCounterpart opens the DM with the given user: an existing cached
// channel is reused, otherwise one is created server-side. On success the
// view is switched to the channel. Never creates a duplicate for a
// counterpart that already has a cached channel.
func (c *DMCache) StartFromCounterpart(ctx context.Context, userID models.ID) (*models.DMChannel, bool) {
	ch, ok := c.FindByParticipant(userID)
	if !ok {
		ch, ok = c.CreateOrGet(ctx, userID)
		if !ok {
			return nil, false
		}
	}
	c.SwitchTo(ctx, ch)
	return ch, true
}

// StartFromSearch looks up a user by name and opens a DM with the first
// match. A search with zero results fails with ErrNotFound so the caller
// can tell the user; this is the one path where not-found is meaningful
// rather than a degraded no-op.
func (c *DMCache) StartFromSearch(ctx context.Context, query string) (*models.DMChannel, error) {
	users, err := c.api.SearchUsers(ctx, query, 1)
	if err != nil {
		c.log.Warn("user search failed", "query", query, "error", err)
		return nil, Internal("SEARCH_FAILED", "user search failed")
	}
	if len(users) == 0 {
		return nil, NotFound("USER_NOT_FOUND", "no user matches "+query)
	}

	ch, ok := c.CreateOrGet(ctx, users[0].ID)
	if !ok {
		return nil, Internal("CREATE_FAILED", "creating DM channel failed")
	}
	c.SwitchTo(ctx, ch)
	return ch, nil
}

// SwitchTo makes ch the current channel and drives the view: active-channel
// state, header, message history, members-list visibility, and list
// highlighting. View effects are fire and forget; message loading runs
// asynchronously and failures are logged.
func (c *DMCache) SwitchTo(ctx context.Context, ch *models.DMChannel) {
	c.mu.Lock()
	cur := *ch
	c.current = &cur
	c.mu.Unlock()

	c.view.SetActiveChannel(ch)
	c.view.RefreshHeader(ch)

	channelID := ch.ID
	go func() {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadMessagesTimeout)
		defer cancel()
		if err := c.view.LoadMessages(loadCtx, channelID); err != nil {
			c.log.Warn("loading messages failed", "channelID", channelID, "error", err)
		}
	}()

	c.view.HideMembersList()
	c.view.MarkActiveListItem(channelID)
}

// Channels returns a snapshot of the cached channel list, most recently
// touched first.
func (c *DMCache) Channels() []models.DMChannel {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.DMChannel, len(c.channels))
	copy(out, c.channels)
	return out
}

// Current returns the currently displayed channel, if any.
func (c *DMCache) Current() (*models.DMChannel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, false
	}
	got := *c.current
	return &got, true
}
