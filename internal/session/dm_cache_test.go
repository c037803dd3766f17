package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/victorivanov/retroterm/internal/models"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var errUnexpectedCall = errors.New("unexpected API call")

// mockAPI implements transport.API with per-method function hooks.
type mockAPI struct {
	ListDMsFn     func(ctx context.Context) ([]models.DMChannel, error)
	CreateDMFn    func(ctx context.Context, userID models.ID) (*models.DMChannel, error)
	GetDMFn       func(ctx context.Context, channelID models.ID) (*models.DMChannel, error)
	SearchUsersFn func(ctx context.Context, query string, limit int) ([]models.User, error)

	mu        sync.Mutex
	createDMs int
}

func (m *mockAPI) ListDMs(ctx context.Context) ([]models.DMChannel, error) {
	if m.ListDMsFn != nil {
		return m.ListDMsFn(ctx)
	}
	return nil, errUnexpectedCall
}

func (m *mockAPI) CreateDM(ctx context.Context, userID models.ID) (*models.DMChannel, error) {
	m.mu.Lock()
	m.createDMs++
	m.mu.Unlock()
	if m.CreateDMFn != nil {
		return m.CreateDMFn(ctx, userID)
	}
	return nil, errUnexpectedCall
}

func (m *mockAPI) GetDM(ctx context.Context, channelID models.ID) (*models.DMChannel, error) {
	if m.GetDMFn != nil {
		return m.GetDMFn(ctx, channelID)
	}
	return nil, errUnexpectedCall
}

func (m *mockAPI) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	if m.SearchUsersFn != nil {
		return m.SearchUsersFn(ctx, query, limit)
	}
	return nil, errUnexpectedCall
}

func (m *mockAPI) createDMCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createDMs
}

// recordingView records view effects driven by SwitchTo. Message loading is
// asynchronous, so it is reported on a channel.
type recordingView struct {
	mu      sync.Mutex
	active  []models.ID
	headers int
	hidden  int
	marked  []models.ID
	loaded  chan models.ID
	loadErr error
}

func newRecordingView() *recordingView {
	return &recordingView{loaded: make(chan models.ID, 8)}
}

func (v *recordingView) SetActiveChannel(ch *models.DMChannel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = append(v.active, ch.ID)
}

func (v *recordingView) RefreshHeader(*models.DMChannel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.headers++
}

func (v *recordingView) LoadMessages(_ context.Context, channelID models.ID) error {
	v.loaded <- channelID
	return v.loadErr
}

func (v *recordingView) HideMembersList() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden++
}

func (v *recordingView) MarkActiveListItem(channelID models.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.marked = append(v.marked, channelID)
}

func (v *recordingView) waitLoaded(t *testing.T) models.ID {
	t.Helper()
	select {
	case id := <-v.loaded:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("LoadMessages was never called")
		return 0
	}
}

const selfID models.ID = 1

func dmWith(channelID, counterpartID models.ID) models.DMChannel {
	return models.DMChannel{
		ID: channelID,
		Recipients: []models.User{
			{ID: selfID, Username: "me"},
			{ID: counterpartID, Username: "them"},
		},
	}
}

func newTestCache(api *mockAPI, view ChatView) *DMCache {
	return NewDMCache(api, view, selfID, nil)
}

// ---------------------------------------------------------------------------
// LoadAll
// ---------------------------------------------------------------------------

func TestDMCache_LoadAll_ReplacesContents(t *testing.T) {
	want := []models.DMChannel{dmWith(7, 42), dmWith(8, 43)}
	api := &mockAPI{
		ListDMsFn: func(context.Context) ([]models.DMChannel, error) {
			return want, nil
		},
	}
	cache := newTestCache(api, nil)
	cache.Upsert(dmWith(99, 99)) // stale entry, replaced by the fetch

	got := cache.LoadAll(context.Background())
	if len(got) != 2 {
		t.Fatalf("LoadAll returned %d channels, want 2", len(got))
	}

	cached := cache.Channels()
	if len(cached) != 2 || cached[0].ID != 7 || cached[1].ID != 8 {
		t.Errorf("cache contents = %v, want channels 7, 8", cached)
	}
}

func TestDMCache_LoadAll_FailureLeavesCacheUnchanged(t *testing.T) {
	api := &mockAPI{
		ListDMsFn: func(context.Context) ([]models.DMChannel, error) {
			return nil, errors.New("success=false")
		},
	}
	cache := newTestCache(api, nil)
	cache.Upsert(dmWith(7, 42))

	got := cache.LoadAll(context.Background())
	if len(got) != 0 {
		t.Errorf("LoadAll on failure returned %d channels, want 0", len(got))
	}

	cached := cache.Channels()
	if len(cached) != 1 || cached[0].ID != 7 {
		t.Errorf("cache was mutated on failure: %v", cached)
	}
}

func TestDMCache_LoadAll_FailureOnEmptyCache(t *testing.T) {
	api := &mockAPI{
		ListDMsFn: func(context.Context) ([]models.DMChannel, error) {
			return nil, errors.New("network unreachable")
		},
	}
	cache := newTestCache(api, nil)

	got := cache.LoadAll(context.Background())
	if len(got) != 0 {
		t.Errorf("LoadAll = %d channels, want 0", len(got))
	}
	if len(cache.Channels()) != 0 {
		t.Error("cache should remain empty after failed first load")
	}
}

// ---------------------------------------------------------------------------
// CreateOrGet
// ---------------------------------------------------------------------------

func TestDMCache_CreateOrGet_InsertsNewAtFront(t *testing.T) {
	ch := dmWith(7, 42)
	api := &mockAPI{
		CreateDMFn: func(_ context.Context, userID models.ID) (*models.DMChannel, error) {
			return &ch, nil
		},
	}
	cache := newTestCache(api, nil)
	cache.Upsert(dmWith(3, 33))

	got, ok := cache.CreateOrGet(context.Background(), 42)
	if !ok {
		t.Fatal("CreateOrGet failed")
	}
	if got.ID != 7 {
		t.Errorf("channel ID = %d, want 7", got.ID)
	}

	cached := cache.Channels()
	if len(cached) != 2 || cached[0].ID != 7 {
		t.Errorf("new channel not at front: %v", cached)
	}
}

func TestDMCache_CreateOrGet_RepeatedCallKeepsSingleEntry(t *testing.T) {
	ch := dmWith(7, 42)
	api := &mockAPI{
		CreateDMFn: func(_ context.Context, userID models.ID) (*models.DMChannel, error) {
			return &ch, nil
		},
	}
	cache := newTestCache(api, nil)

	if _, ok := cache.CreateOrGet(context.Background(), 42); !ok {
		t.Fatal("first CreateOrGet failed")
	}
	if _, ok := cache.CreateOrGet(context.Background(), 42); !ok {
		t.Fatal("second CreateOrGet failed")
	}

	cached := cache.Channels()
	if len(cached) != 1 {
		t.Fatalf("cache holds %d channels, want exactly 1", len(cached))
	}
	if cached[0].ID != 7 {
		t.Errorf("cached channel ID = %d, want 7", cached[0].ID)
	}
}

func TestDMCache_CreateOrGet_ExistingPromotedToFront(t *testing.T) {
	ch := dmWith(7, 42)
	api := &mockAPI{
		CreateDMFn: func(context.Context, models.ID) (*models.DMChannel, error) {
			return &ch, nil
		},
	}
	cache := newTestCache(api, nil)
	cache.Upsert(dmWith(7, 42))
	cache.Upsert(dmWith(8, 43)) // 8 is now in front of 7

	if _, ok := cache.CreateOrGet(context.Background(), 42); !ok {
		t.Fatal("CreateOrGet failed")
	}

	cached := cache.Channels()
	if len(cached) != 2 {
		t.Fatalf("cache holds %d channels, want 2", len(cached))
	}
	if cached[0].ID != 7 || cached[1].ID != 8 {
		t.Errorf("existing channel not promoted to front: %v", cached)
	}
}

func TestDMCache_CreateOrGet_FailureReturnsAbsent(t *testing.T) {
	api := &mockAPI{
		CreateDMFn: func(context.Context, models.ID) (*models.DMChannel, error) {
			return nil, errors.New("success=false")
		},
	}
	cache := newTestCache(api, nil)

	got, ok := cache.CreateOrGet(context.Background(), 42)
	if ok || got != nil {
		t.Errorf("CreateOrGet on failure = (%v, %v), want (nil, false)", got, ok)
	}
	if len(cache.Channels()) != 0 {
		t.Error("cache mutated on failure")
	}
}

// ---------------------------------------------------------------------------
// Get (read-through)
// ---------------------------------------------------------------------------

func TestDMCache_Get_DoesNotMutateCache(t *testing.T) {
	ch := dmWith(7, 42)
	api := &mockAPI{
		GetDMFn: func(_ context.Context, channelID models.ID) (*models.DMChannel, error) {
			return &ch, nil
		},
	}
	cache := newTestCache(api, nil)

	got, ok := cache.Get(context.Background(), 7)
	if !ok || got.ID != 7 {
		t.Fatalf("Get = (%v, %v), want channel 7", got, ok)
	}
	if len(cache.Channels()) != 0 {
		t.Error("Get must not fill the cache")
	}
}

func TestDMCache_Get_Failure(t *testing.T) {
	api := &mockAPI{
		GetDMFn: func(context.Context, models.ID) (*models.DMChannel, error) {
			return nil, errors.New("not found")
		},
	}
	cache := newTestCache(api, nil)

	if got, ok := cache.Get(context.Background(), 7); ok || got != nil {
		t.Errorf("Get on failure = (%v, %v), want (nil, false)", got, ok)
	}
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func TestDMCache_FindByParticipant(t *testing.T) {
	cache := newTestCache(&mockAPI{}, nil)
	cache.Upsert(dmWith(7, 42))
	cache.Upsert(dmWith(8, 43))

	got, ok := cache.FindByParticipant(42)
	if !ok || got.ID != 7 {
		t.Errorf("FindByParticipant(42) = (%v, %v), want channel 7", got, ok)
	}
	if _, ok := cache.FindByParticipant(99); ok {
		t.Error("FindByParticipant(99) found a channel, want absent")
	}
}

func TestDMCache_FindByID(t *testing.T) {
	cache := newTestCache(&mockAPI{}, nil)
	cache.Upsert(dmWith(7, 42))

	if _, ok := cache.FindByID(7); !ok {
		t.Error("FindByID(7) absent, want found")
	}
	if _, ok := cache.FindByID(8); ok {
		t.Error("FindByID(8) found, want absent")
	}
}

// IDs decoded from JSON strings and plain integers must address the same
// cached channel.
func TestDMCache_FindByID_CanonicalComparison(t *testing.T) {
	var ch models.DMChannel
	payload := `{"id":"7","recipients":[{"id":"1","username":"me"},{"id":"42","username":"them"}]}`
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	cache := newTestCache(&mockAPI{}, nil)
	cache.Upsert(ch)

	if _, ok := cache.FindByID(models.ID(7)); !ok {
		t.Error("integer-form lookup missed the channel decoded from a string ID")
	}
	parsed, err := models.ParseID("7")
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if _, ok := cache.FindByID(parsed); !ok {
		t.Error("string-form lookup missed the channel")
	}
}

// ---------------------------------------------------------------------------
// StartFromCounterpart / StartFromSearch / SwitchTo
// ---------------------------------------------------------------------------

func TestDMCache_StartFromCounterpart_ReusesCachedChannel(t *testing.T) {
	api := &mockAPI{} // CreateDM would fail; it must not be called
	view := newRecordingView()
	cache := newTestCache(api, view)
	cache.Upsert(dmWith(7, 42))

	got, ok := cache.StartFromCounterpart(context.Background(), 42)
	if !ok || got.ID != 7 {
		t.Fatalf("StartFromCounterpart = (%v, %v), want channel 7", got, ok)
	}
	if api.createDMCalls() != 0 {
		t.Errorf("CreateDM called %d times for a cached counterpart, want 0", api.createDMCalls())
	}
	if len(cache.Channels()) != 1 {
		t.Errorf("cache holds %d channels, want 1 (no duplicate)", len(cache.Channels()))
	}
	if got := view.waitLoaded(t); got != 7 {
		t.Errorf("LoadMessages channel = %d, want 7", got)
	}
}

func TestDMCache_StartFromCounterpart_CreatesWhenAbsent(t *testing.T) {
	ch := dmWith(7, 42)
	api := &mockAPI{
		CreateDMFn: func(context.Context, models.ID) (*models.DMChannel, error) {
			return &ch, nil
		},
	}
	view := newRecordingView()
	cache := newTestCache(api, view)

	got, ok := cache.StartFromCounterpart(context.Background(), 42)
	if !ok || got.ID != 7 {
		t.Fatalf("StartFromCounterpart = (%v, %v), want channel 7", got, ok)
	}
	if api.createDMCalls() != 1 {
		t.Errorf("CreateDM calls = %d, want 1", api.createDMCalls())
	}
	if cur, ok := cache.Current(); !ok || cur.ID != 7 {
		t.Error("current channel not set after start")
	}
}

func TestDMCache_StartFromSearch_NotFound(t *testing.T) {
	api := &mockAPI{
		SearchUsersFn: func(_ context.Context, query string, limit int) ([]models.User, error) {
			if limit != 1 {
				t.Errorf("search limit = %d, want 1", limit)
			}
			return []models.User{}, nil
		},
	}
	cache := newTestCache(api, nil)

	_, err := cache.StartFromSearch(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("StartFromSearch error = %v, want ErrNotFound", err)
	}
	if api.createDMCalls() != 0 {
		t.Error("CreateDM called despite empty search result")
	}
	if len(cache.Channels()) != 0 {
		t.Error("cache mutated on not-found search")
	}
}

func TestDMCache_StartFromSearch_Success(t *testing.T) {
	ch := dmWith(7, 42)
	api := &mockAPI{
		SearchUsersFn: func(context.Context, string, int) ([]models.User, error) {
			return []models.User{{ID: 42, Username: "them"}}, nil
		},
		CreateDMFn: func(_ context.Context, userID models.ID) (*models.DMChannel, error) {
			if userID != 42 {
				t.Errorf("CreateDM userID = %d, want 42", userID)
			}
			return &ch, nil
		},
	}
	view := newRecordingView()
	cache := newTestCache(api, view)

	got, err := cache.StartFromSearch(context.Background(), "them")
	if err != nil {
		t.Fatalf("StartFromSearch: %v", err)
	}
	if got.ID != 7 {
		t.Errorf("channel ID = %d, want 7", got.ID)
	}
	view.waitLoaded(t)
}

func TestDMCache_StartFromSearch_TransportFailure(t *testing.T) {
	api := &mockAPI{
		SearchUsersFn: func(context.Context, string, int) ([]models.User, error) {
			return nil, errors.New("timeout")
		},
	}
	cache := newTestCache(api, nil)

	_, err := cache.StartFromSearch(context.Background(), "them")
	if err == nil {
		t.Fatal("expected error on transport failure")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("transport failure must be distinguishable from not-found")
	}
}

func TestDMCache_SwitchTo_DrivesView(t *testing.T) {
	view := newRecordingView()
	cache := newTestCache(&mockAPI{}, view)
	ch := dmWith(7, 42)

	cache.SwitchTo(context.Background(), &ch)

	if cur, ok := cache.Current(); !ok || cur.ID != 7 {
		t.Error("current channel not set")
	}
	if got := view.waitLoaded(t); got != 7 {
		t.Errorf("LoadMessages channel = %d, want 7", got)
	}

	view.mu.Lock()
	defer view.mu.Unlock()
	if len(view.active) != 1 || view.active[0] != 7 {
		t.Errorf("SetActiveChannel calls = %v, want [7]", view.active)
	}
	if view.headers != 1 {
		t.Errorf("RefreshHeader calls = %d, want 1", view.headers)
	}
	if view.hidden != 1 {
		t.Errorf("HideMembersList calls = %d, want 1", view.hidden)
	}
	if len(view.marked) != 1 || view.marked[0] != 7 {
		t.Errorf("MarkActiveListItem calls = %v, want [7]", view.marked)
	}
}

func TestDMCache_SwitchTo_LoadFailureIsSwallowed(t *testing.T) {
	view := newRecordingView()
	view.loadErr = errors.New("message history unavailable")
	cache := newTestCache(&mockAPI{}, view)
	ch := dmWith(7, 42)

	// Must not panic or propagate; the failure is logged.
	cache.SwitchTo(context.Background(), &ch)
	view.waitLoaded(t)
}
