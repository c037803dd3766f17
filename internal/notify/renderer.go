package notify

import (
	"log/slog"

	"github.com/victorivanov/retroterm/internal/models"
)

// Renderer mounts and unmounts notification widgets. The queue remains the
// authoritative owner of every notification; the renderer only keeps the
// render handle it is given.
//
// For confirm notifications respond is non-nil and must be invoked with the
// user's choice (true for the affirmative control). The queue ignores every
// invocation after the first. For all other kinds respond is nil.
type Renderer interface {
	Mount(n models.Notification, respond func(ok bool)) error
	Unmount(n models.Notification)
}

// NopRenderer discards all render requests. Useful for headless operation.
type NopRenderer struct{}

func (NopRenderer) Mount(models.Notification, func(bool)) error { return nil }
func (NopRenderer) Unmount(models.Notification)                 {}

// LogRenderer writes notifications to a structured log instead of a screen.
// Confirm prompts are answered affirmatively since there is no user to ask.
type LogRenderer struct {
	Log *slog.Logger
}

func (r LogRenderer) Mount(n models.Notification, respond func(ok bool)) error {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notification",
		"id", n.ID,
		"kind", n.Kind,
		"title", n.Title,
		"message", n.Message,
	)
	if respond != nil {
		respond(true)
	}
	return nil
}

func (LogRenderer) Unmount(models.Notification) {}
