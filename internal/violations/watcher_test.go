package violations

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horus/internal/backend"
)

type fakeFeed struct {
	mu      sync.Mutex
	batches [][]Violation
	err     error
	calls   int
}

func (f *fakeFeed) Recent(ctx context.Context, limit int) ([]Violation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	if len(f.batches) > 1 {
		f.batches = f.batches[1:]
	}
	return batch, nil
}

func v(id, kind string) Violation {
	return Violation{ID: id, ViolationType: kind, Timestamp: "2026-09-01T09:00:00Z"}
}

func TestWatcherDedupesEvents(t *testing.T) {
	feed := &fakeFeed{batches: [][]Violation{
		{v("a", "no-helmet"), v("b", "no-vest")},
		{v("b", "no-vest"), v("c", "no-helmet")},
	}}
	w := NewWatcher(feed, time.Minute, 20, zerolog.Nop())

	w.poll(context.Background())
	w.poll(context.Background())

	var got []string
	for {
		select {
		case ev := <-w.Events():
			got = append(got, ev.ID)
			continue
		default:
		}
		break
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestWatcherLatestIsSnapshot(t *testing.T) {
	feed := &fakeFeed{batches: [][]Violation{
		{v("a", "no-helmet")},
		{v("b", "no-vest"), v("c", "no-helmet")},
	}}
	w := NewWatcher(feed, time.Minute, 20, zerolog.Nop())

	w.poll(context.Background())
	require.Len(t, w.Latest(), 1)

	w.poll(context.Background())
	latest := w.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, "b", latest[0].ID)

	// Mutating the returned slice must not touch the watcher's copy.
	latest[0].ID = "mutated"
	assert.Equal(t, "b", w.Latest()[0].ID)
}

func TestWatcherDedupStateStaysBounded(t *testing.T) {
	feed := &fakeFeed{batches: [][]Violation{
		{v("a", "no-helmet"), v("b", "no-vest")},
		{v("c", "no-helmet"), v("d", "no-vest")},
		{v("e", "no-helmet"), v("f", "no-vest")},
	}}
	w := NewWatcher(feed, time.Minute, 20, zerolog.Nop())

	for i := 0; i < 3; i++ {
		w.poll(context.Background())
	}

	// Ids that fell out of the recent window are evicted; the map tracks the
	// window, not the feed's full history.
	w.mu.Lock()
	size := len(w.seen)
	w.mu.Unlock()
	assert.Equal(t, 2, size)
}

func TestWatcherKeepsSnapshotOnPollFailure(t *testing.T) {
	feed := &fakeFeed{batches: [][]Violation{{v("a", "no-helmet")}}}
	w := NewWatcher(feed, time.Minute, 20, zerolog.Nop())
	w.poll(context.Background())

	feed.mu.Lock()
	feed.err = backend.Transport(context.DeadlineExceeded)
	feed.mu.Unlock()

	w.poll(context.Background())
	assert.Len(t, w.Latest(), 1)
}

func TestWatcherIgnoresBlankIDs(t *testing.T) {
	feed := &fakeFeed{batches: [][]Violation{{{ViolationType: "no-helmet"}, v("a", "no-vest")}}}
	w := NewWatcher(feed, time.Minute, 20, zerolog.Nop())
	w.poll(context.Background())

	ev := <-w.Events()
	assert.Equal(t, "a", ev.ID)
	select {
	case extra := <-w.Events():
		t.Fatalf("unexpected event %q", extra.ID)
	default:
	}
}

func TestWatcherRunClosesEventsOnCancel(t *testing.T) {
	feed := &fakeFeed{}
	w := NewWatcher(feed, time.Millisecond, 20, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, open := <-w.Events()
	assert.False(t, open)
}

func TestClientRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recent", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		io.WriteString(w, `{"violations":[
			{"id":"a","timestamp":"2026-09-01T09:00:00Z","camera_id":0,"person_name":"Alice","violation_type":"no-helmet","class_name":"NO-Hardhat"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, time.Second)
	found, err := c.Recent(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "no-helmet", found[0].ViolationType)
	assert.Equal(t, float64(0), found[0].CameraID)
}

func TestClientCameraFeedURL(t *testing.T) {
	c := New("http://host/api/violations", "http://host/api", time.Second)
	assert.Equal(t, "http://host/api/video_feed2", c.CameraFeedURL(2))
}
