package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/victorivanov/retroterm/internal/models"
)

// Timing defaults. Every notification that leaves the screen goes through a
// fixed exit delay so the renderer can finish its exit animation before the
// widget is detached.
const (
	exitDelay = 300 * time.Millisecond

	defaultDuration = 4 * time.Second
	successDuration = 3 * time.Second
	errorDuration   = 5 * time.Second
	warningDuration = defaultDuration
	infoDuration    = defaultDuration
)

// timer is the stoppable handle returned by the scheduler.
type timer interface {
	Stop() bool
}

// scheduler abstracts timer creation so tests can drive transitions
// deterministically.
type scheduler interface {
	AfterFunc(d time.Duration, f func()) timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// entry is the queue's tracked record for one live notification.
type entry struct {
	n       models.Notification
	dismiss timer     // pending auto-dismiss, nil once fired or cancelled
	result  chan bool // confirm kind only, buffered
	settled bool      // confirm kind: a control has been activated
}

// Queue owns the set of currently tracked notifications and their timed
// lifecycle: visible -> hiding -> removed. IDs are strictly increasing and
// never reused; an ID that has reached removed is forgotten for good.
type Queue struct {
	renderer Renderer
	log      *slog.Logger
	sched    scheduler

	mu      sync.Mutex
	nextID  int64
	entries map[int64]*entry
}

// NewQueue creates an empty Queue rendering through r.
func NewQueue(r Renderer, log *slog.Logger) *Queue {
	if r == nil {
		r = NopRenderer{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		renderer: r,
		log:      log,
		sched:    realScheduler{},
		entries:  make(map[int64]*entry),
	}
}

// Show creates a notification, mounts it, and schedules auto-dismissal when
// autoDismissAfter is positive. It returns the assigned ID immediately.
func (q *Queue) Show(message string, kind models.NotificationKind, title string, autoDismissAfter time.Duration) int64 {
	n := q.track(models.Notification{
		Kind:             kind,
		Message:          message,
		Title:            title,
		AutoDismissAfter: autoDismissAfter,
	}, nil)
	q.mount(n, nil)
	return n.ID
}

// track assigns the next ID, registers the entry, and schedules the
// auto-dismiss timer. The returned copy carries the assigned ID.
func (q *Queue) track(n models.Notification, result chan bool) models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	n.ID = q.nextID
	n.State = models.NotificationVisible
	n.RenderHandle = uuid.NewString()

	e := &entry{n: n, result: result}
	q.entries[n.ID] = e
	if n.AutoDismissAfter > 0 {
		id := n.ID
		e.dismiss = q.sched.AfterFunc(n.AutoDismissAfter, func() { q.Hide(id) })
	}
	return n
}

func (q *Queue) mount(n models.Notification, respond func(bool)) {
	if err := q.renderer.Mount(n, respond); err != nil {
		q.log.Warn("mounting notification failed", "id", n.ID, "kind", n.Kind, "error", err)
	}
}

// Success shows a success notification. An optional title overrides the
// default.
func (q *Queue) Success(message string, title ...string) int64 {
	return q.Show(message, models.NotifySuccess, pick(title, "Success"), successDuration)
}

// Error shows an error notification.
func (q *Queue) Error(message string, title ...string) int64 {
	return q.Show(message, models.NotifyError, pick(title, "Error"), errorDuration)
}

// Warning shows a warning notification.
func (q *Queue) Warning(message string, title ...string) int64 {
	return q.Show(message, models.NotifyWarning, pick(title, "Warning"), warningDuration)
}

// Info shows an info notification.
func (q *Queue) Info(message string, title ...string) int64 {
	return q.Show(message, models.NotifyInfo, pick(title, "Info"), infoDuration)
}

func pick(override []string, fallback string) string {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return fallback
}

// Hide begins the removal of a notification: visible -> hiding now, then
// hiding -> removed after the exit delay. It is idempotent; an unknown ID,
// or one already past visible, is a no-op. Any pending auto-dismiss timer
// is cancelled and released.
func (q *Queue) Hide(id int64) {
	q.mu.Lock()
	e, ok := q.entries[id]
	if !ok || e.n.State != models.NotificationVisible {
		q.mu.Unlock()
		return
	}
	e.n.State = models.NotificationHiding
	if e.dismiss != nil {
		e.dismiss.Stop()
		e.dismiss = nil
	}
	q.sched.AfterFunc(exitDelay, func() { q.remove(id) })
	q.mu.Unlock()
}

// remove finishes the lifecycle: purge the record and detach the widget.
func (q *Queue) remove(id int64) {
	q.mu.Lock()
	e, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	e.n.State = models.NotificationRemoved
	delete(q.entries, id)
	n := e.n
	q.mu.Unlock()

	q.renderer.Unmount(n)
}

// ClearAll hides every tracked notification. It does not wait for their
// staggered removal. The tracked set is snapshotted first so renderer
// callbacks may hide or show notifications reentrantly.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	ids := make([]int64, 0, len(q.entries))
	for id := range q.entries {
		ids = append(ids, id)
	}
	q.mu.Unlock()

	for _, id := range ids {
		q.Hide(id)
	}
}

// Confirm shows a confirmation prompt and blocks the calling goroutine until
// the user activates one of the two controls, returning true for the
// affirmative one. The first activation wins; the other control is ignored
// afterwards. There is no timeout: an unanswered prompt blocks forever.
// Empty title and labels fall back to "Confirm", "OK" and "Cancel".
func (q *Queue) Confirm(message, title, okLabel, cancelLabel string) bool {
	if title == "" {
		title = "Confirm"
	}
	if okLabel == "" {
		okLabel = "OK"
	}
	if cancelLabel == "" {
		cancelLabel = "Cancel"
	}

	result := make(chan bool, 1)
	n := q.track(models.Notification{
		Kind:        models.NotifyConfirm,
		Message:     message,
		Title:       title,
		OKLabel:     okLabel,
		CancelLabel: cancelLabel,
	}, result)

	id := n.ID
	q.mount(n, func(ok bool) { q.resolve(id, ok) })

	return <-result
}

// resolve records the user's choice for a confirm notification exactly once
// and starts its hide transition.
func (q *Queue) resolve(id int64, ok bool) {
	q.mu.Lock()
	e, tracked := q.entries[id]
	if !tracked || e.settled {
		q.mu.Unlock()
		return
	}
	e.settled = true
	result := e.result
	q.mu.Unlock()

	if result != nil {
		result <- ok
	}
	q.Hide(id)
}

// Active returns the number of notifications not yet removed.
func (q *Queue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// State reports the lifecycle state of a notification. IDs that were never
// issued or are already removed report NotificationRemoved.
func (q *Queue) State(id int64) models.NotificationState {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[id]; ok {
		return e.n.State
	}
	return models.NotificationRemoved
}
