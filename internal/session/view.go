package session

import (
	"context"

	"github.com/victorivanov/retroterm/internal/models"
)

// ChatView is the UI surface the DM cache drives when the active channel
// changes. Implementations render; the cache only decides what to show.
// All methods are best effort: errors are logged by the cache, never
// returned to the operation that triggered the switch.
type ChatView interface {
	SetActiveChannel(ch *models.DMChannel)
	RefreshHeader(ch *models.DMChannel)
	LoadMessages(ctx context.Context, channelID models.ID) error
	HideMembersList()
	MarkActiveListItem(channelID models.ID)
}

// NopView is a ChatView that does nothing. Useful for headless operation
// and as an embedding base for partial implementations.
type NopView struct{}

func (NopView) SetActiveChannel(*models.DMChannel)            {}
func (NopView) RefreshHeader(*models.DMChannel)               {}
func (NopView) LoadMessages(context.Context, models.ID) error { return nil }
func (NopView) HideMembersList()                              {}
func (NopView) MarkActiveListItem(models.ID)                  {}
