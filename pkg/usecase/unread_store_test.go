package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
	"github.com/secmon-lab/lexiconnect/pkg/repository/memory"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
)

type failingKV struct {
	*memory.Memory
	failPut bool
	failGet bool

	puts     int
	putManys int
	deletes  int
}

func (f *failingKV) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut {
		return errors.New("backend unavailable")
	}
	f.puts++
	return f.Memory.Put(ctx, key, value)
}

func (f *failingKV) Delete(ctx context.Context, key string) error {
	f.deletes++
	return f.Memory.Delete(ctx, key)
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("backend unavailable")
	}
	return f.Memory.Get(ctx, key)
}

func (f *failingKV) PutMany(ctx context.Context, entries map[string][]byte) error {
	if f.failPut {
		return errors.New("backend unavailable")
	}
	f.putManys++
	return f.Memory.PutMany(ctx, entries)
}

func TestUnreadStore_MarkRead(t *testing.T) {
	ctx := context.Background()
	t2 := ts(t, "2024-01-01T11:00:00Z")
	t3 := ts(t, "2024-01-01T12:00:00Z")

	t.Run("clears unread and suppresses toast", func(t *testing.T) {
		store, _ := newStore(t)
		gt.NoError(t, store.MarkUnread(ctx, 5)).Required()
		gt.Bool(t, store.Snapshot().IsUnread(5)).True()

		gt.NoError(t, store.MarkRead(ctx, 5, t3)).Required()

		seen, ok := store.LastSeen(5)
		gt.Bool(t, ok).True()
		gt.Value(t, seen).Equal(t3)
		gt.Bool(t, store.ShouldNotify(5, t3)).False()
		gt.Bool(t, store.Snapshot().IsUnread(5)).False()
		gt.Value(t, store.State(5)).Equal(types.CaseStateSeen)
	})

	t.Run("older timestamp never moves lastSeen back", func(t *testing.T) {
		store, _ := newStore(t)
		gt.NoError(t, store.MarkRead(ctx, 5, t3)).Required()
		gt.NoError(t, store.MarkRead(ctx, 5, t2)).Required()

		seen, _ := store.LastSeen(5)
		gt.Value(t, seen).Equal(t3)
		gt.Value(t, store.Snapshot().LastNotified[5]).Equal(t3)
	})

	t.Run("zero timestamp is a no-op", func(t *testing.T) {
		store, _ := newStore(t)
		gt.NoError(t, store.MarkUnread(ctx, 5)).Required()
		gt.NoError(t, store.MarkRead(ctx, 5, time.Time{})).Required()

		_, ok := store.LastSeen(5)
		gt.Bool(t, ok).False()
		gt.Bool(t, store.Snapshot().IsUnread(5)).True()
	})

	t.Run("repeated timestamp does not rewrite", func(t *testing.T) {
		kv := &failingKV{Memory: memory.New()}
		store, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
		gt.NoError(t, err).Required()
		gt.NoError(t, store.MarkRead(ctx, 5, t3)).Required()

		kv.failPut = true
		// guarded by the marked timestamp, so no write is attempted
		gt.NoError(t, store.MarkRead(ctx, 5, t3))
		gt.NoError(t, store.MarkRead(ctx, 5, t2))
	})
}

func TestUnreadStore_MarkUnread(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	gt.NoError(t, store.MarkUnread(ctx, 5)).Required()
	gt.NoError(t, store.MarkUnread(ctx, 5)).Required()
	gt.NoError(t, store.MarkUnread(ctx, 3)).Required()

	gt.Value(t, store.Snapshot().UnreadCaseIDs()).Equal([]int64{3, 5})
}

func TestUnreadStore_ShouldNotify(t *testing.T) {
	ctx := context.Background()
	t2 := ts(t, "2024-01-01T11:00:00Z")
	t3 := ts(t, "2024-01-01T12:00:00Z")

	store, _ := newStore(t)
	gt.Bool(t, store.ShouldNotify(5, t2)).True()

	gt.NoError(t, store.RecordNotified(ctx, 5, t2)).Required()
	gt.Bool(t, store.ShouldNotify(5, t2)).False()
	gt.Bool(t, store.ShouldNotify(5, t3)).True()

	// never rolls back
	gt.NoError(t, store.RecordNotified(ctx, 5, t3)).Required()
	gt.NoError(t, store.RecordNotified(ctx, 5, t2)).Required()
	gt.Value(t, store.Snapshot().LastNotified[5]).Equal(t3)

	gt.NoError(t, store.Dismiss(ctx, 6)).Required()
	gt.Bool(t, store.ShouldNotify(6, t3)).False()
	gt.NoError(t, store.Undismiss(ctx, 6)).Required()
	gt.Bool(t, store.ShouldNotify(6, t3)).True()
}

func TestUnreadStore_Persistence(t *testing.T) {
	ctx := context.Background()
	t2 := ts(t, "2024-01-01T11:00:00Z")
	t3 := ts(t, "2024-01-01T12:00:00Z")

	kv := memory.New()
	store, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
	gt.NoError(t, err).Required()

	gt.NoError(t, store.MarkRead(ctx, 5, t2)).Required()
	gt.NoError(t, store.MarkUnread(ctx, 5)).Required()
	gt.NoError(t, store.RecordNotified(ctx, 5, t3)).Required()
	gt.NoError(t, store.Dismiss(ctx, 7)).Required()

	raw, err := kv.Get(ctx, "viewer-1/unread/case_ids")
	gt.NoError(t, err).Required()
	gt.Value(t, string(raw)).Equal("[5]")

	reloaded, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
	gt.NoError(t, err).Required()

	seen, ok := reloaded.LastSeen(5)
	gt.Bool(t, ok).True()
	gt.Value(t, seen).Equal(t2)
	gt.Value(t, reloaded.State(5)).Equal(types.CaseStateNotified)
	gt.Bool(t, reloaded.Snapshot().IsDismissed(7)).True()

	// namespaces are isolated
	other, err := usecase.NewUnreadStore(ctx, kv, "viewer-2")
	gt.NoError(t, err).Required()
	gt.Value(t, other.State(5)).Equal(types.CaseStateUnknown)
}

func TestUnreadStore_CorruptedState(t *testing.T) {
	ctx := context.Background()

	cases := map[string]struct {
		key   string
		value string
	}{
		"invalid json":      {key: "viewer-1/unread/last_seen", value: "{not json"},
		"invalid case id":   {key: "viewer-1/unread/last_notified", value: `{"abc": "2024-01-01T10:00:00Z"}`},
		"invalid timestamp": {key: "viewer-1/unread/last_seen", value: `{"5": "soon"}`},
		"wrong set shape":   {key: "viewer-1/unread/case_ids", value: `{"5": true}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			kv := memory.New()
			gt.NoError(t, kv.Put(ctx, "viewer-1/unread/dismissed", []byte("[9]"))).Required()
			gt.NoError(t, kv.Put(ctx, tc.key, []byte(tc.value))).Required()

			store, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
			gt.NoError(t, err).Required()

			snapshot := store.Snapshot()
			gt.Value(t, len(snapshot.LastSeen)).Equal(0)
			gt.Value(t, len(snapshot.Dismissed)).Equal(0)

			// the store stays usable and overwrites the corrupted value
			gt.NoError(t, store.MarkUnread(ctx, 1)).Required()
			reloaded, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
			gt.NoError(t, err).Required()
			gt.Bool(t, reloaded.Snapshot().IsUnread(1)).True()
		})
	}
}

func TestUnreadStore_BackendFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("read failure is returned", func(t *testing.T) {
		kv := &failingKV{Memory: memory.New(), failGet: true}
		_, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
		gt.Value(t, err).NotNil()
	})

	t.Run("write failure keeps previous state", func(t *testing.T) {
		kv := &failingKV{Memory: memory.New()}
		store, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
		gt.NoError(t, err).Required()

		kv.failPut = true
		gt.Value(t, store.MarkUnread(ctx, 5)).NotNil()
		gt.Bool(t, store.Snapshot().IsUnread(5)).False()
	})
}

func TestUnreadStore_WritesOnlyChangedKeys(t *testing.T) {
	ctx := context.Background()
	t3 := ts(t, "2024-01-01T12:00:00Z")

	kv := &failingKV{Memory: memory.New()}
	store, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
	gt.NoError(t, err).Required()

	// only the unread set changes
	gt.NoError(t, store.MarkUnread(ctx, 5)).Required()
	gt.Value(t, kv.puts).Equal(1)
	gt.Value(t, kv.putManys).Equal(0)
	v, err := kv.Get(ctx, "viewer-1/unread/case_ids")
	gt.NoError(t, err).Required()
	gt.Value(t, string(v)).Equal("[5]")
	v, err = kv.Get(ctx, "viewer-1/unread/last_seen")
	gt.NoError(t, err).Required()
	gt.Value(t, v).Nil()

	// marking read touches several keys in one batch
	gt.NoError(t, store.MarkRead(ctx, 5, t3)).Required()
	gt.Value(t, kv.puts).Equal(1)
	gt.Value(t, kv.putManys).Equal(1)

	reloaded, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
	gt.NoError(t, err).Required()
	seen, ok := reloaded.LastSeen(5)
	gt.Bool(t, ok).True()
	gt.Value(t, seen).Equal(t3)
	gt.Bool(t, reloaded.Snapshot().IsUnread(5)).False()
	gt.Value(t, kv.deletes).Equal(0)
}

func TestUnreadStore_CorruptedStateIsCleared(t *testing.T) {
	ctx := context.Background()

	kv := &failingKV{Memory: memory.New()}
	gt.NoError(t, kv.Memory.Put(ctx, "viewer-1/unread/dismissed", []byte("[9]"))).Required()
	gt.NoError(t, kv.Memory.Put(ctx, "viewer-1/unread/last_seen", []byte("{broken"))).Required()

	_, err := usecase.NewUnreadStore(ctx, kv, "viewer-1")
	gt.NoError(t, err).Required()
	gt.Value(t, kv.deletes).Equal(2)

	v, err := kv.Get(ctx, "viewer-1/unread/dismissed")
	gt.NoError(t, err).Required()
	gt.Value(t, v).Nil()
}

func TestUnreadStore_DefaultNamespace(t *testing.T) {
	store, err := usecase.NewUnreadStore(context.Background(), memory.New(), "")
	gt.NoError(t, err).Required()
	gt.Value(t, store.Namespace()).Equal(usecase.DefaultNamespace)
}
