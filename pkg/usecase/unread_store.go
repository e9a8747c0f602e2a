package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/interfaces"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
)

// DefaultNamespace is used when no viewer ID is configured
const DefaultNamespace = "default"

const (
	keyLastSeen     = "unread/last_seen"
	keyLastNotified = "unread/last_notified"
	keyCaseIDs      = "unread/case_ids"
	keyDismissed    = "unread/dismissed"
	keyMarked       = "unread/marked"
)

// UnreadStore holds the viewer's read bookkeeping and persists it to a
// KVStore. Every mutation is a single read-modify-write under the store lock,
// and in-memory state only changes after the write succeeded.
type UnreadStore struct {
	kv        interfaces.KVStore
	namespace string

	mu    sync.Mutex
	state *model.UnreadState
}

// NewUnreadStore loads the state persisted under namespace. Persisted values
// that cannot be decoded reset the whole state to empty, as on a fresh
// install. Backend read failures are returned.
func NewUnreadStore(ctx context.Context, kv interfaces.KVStore, namespace string) (*UnreadStore, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	s := &UnreadStore{
		kv:        kv,
		namespace: namespace,
	}

	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

// Namespace returns the namespace the state is persisted under
func (s *UnreadStore) Namespace() string {
	return s.namespace
}

func (s *UnreadStore) key(name string) string {
	return s.namespace + "/" + name
}

func (s *UnreadStore) load(ctx context.Context) (*model.UnreadState, error) {
	raw := make(map[string][]byte, 5)
	for _, name := range []string{keyLastSeen, keyLastNotified, keyCaseIDs, keyDismissed, keyMarked} {
		v, err := s.kv.Get(ctx, s.key(name))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read unread state",
				goerr.V(NamespaceKey, s.namespace), goerr.V(StoreKeyKey, name))
		}
		raw[name] = v
	}

	state, err := decodeState(raw)
	if err != nil {
		logging.From(ctx).Warn("persisted unread state is corrupted, starting from empty state",
			"namespace", s.namespace,
			"error", err.Error(),
		)
		// Writes only touch changed keys, so stale values must not survive
		for name, v := range raw {
			if v == nil {
				continue
			}
			if err := s.kv.Delete(ctx, s.key(name)); err != nil {
				return nil, goerr.Wrap(err, "failed to clear corrupted unread state",
					goerr.V(NamespaceKey, s.namespace), goerr.V(StoreKeyKey, name))
			}
		}
		return model.NewUnreadState(), nil
	}
	return state, nil
}

func decodeState(raw map[string][]byte) (*model.UnreadState, error) {
	state := model.NewUnreadState()

	timeMaps := map[string]map[int64]time.Time{
		keyLastSeen:     state.LastSeen,
		keyLastNotified: state.LastNotified,
		keyMarked:       state.Marked,
	}
	for name, dst := range timeMaps {
		if err := decodeTimeMap(raw[name], dst); err != nil {
			return nil, goerr.Wrap(err, "failed to decode timestamps", goerr.V(StoreKeyKey, name))
		}
	}

	sets := map[string]map[int64]struct{}{
		keyCaseIDs:   state.Unread,
		keyDismissed: state.Dismissed,
	}
	for name, dst := range sets {
		if err := decodeIDSet(raw[name], dst); err != nil {
			return nil, goerr.Wrap(err, "failed to decode case ids", goerr.V(StoreKeyKey, name))
		}
	}

	return state, nil
}

func decodeTimeMap(data []byte, dst map[int64]time.Time) error {
	if len(data) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return goerr.Wrap(err, "invalid json")
	}
	for k, v := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return goerr.Wrap(ErrInvalidCaseID, "invalid case id", goerr.V(CaseIDKey, k))
		}
		t, ok := model.ParseTimestamp(v)
		if !ok {
			return goerr.Wrap(ErrInvalidTimestamp, "invalid timestamp", goerr.V(CaseIDKey, k), goerr.V("value", v))
		}
		dst[id] = t
	}
	return nil
}

func decodeIDSet(data []byte, dst map[int64]struct{}) error {
	if len(data) == 0 {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return goerr.Wrap(err, "invalid json")
	}
	for _, id := range ids {
		dst[id] = struct{}{}
	}
	return nil
}

func encodeState(state *model.UnreadState) (map[string][]byte, error) {
	out := make(map[string][]byte, 5)

	timeMaps := map[string]map[int64]time.Time{
		keyLastSeen:     state.LastSeen,
		keyLastNotified: state.LastNotified,
		keyMarked:       state.Marked,
	}
	for name, src := range timeMaps {
		m := make(map[string]string, len(src))
		for id, t := range src {
			m[strconv.FormatInt(id, 10)] = model.FormatTimestamp(t)
		}
		data, err := json.Marshal(m)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode timestamps", goerr.V(StoreKeyKey, name))
		}
		out[name] = data
	}

	sets := map[string][]int64{
		keyCaseIDs:   state.UnreadCaseIDs(),
		keyDismissed: slices.Sorted(maps.Keys(state.Dismissed)),
	}
	for name, ids := range sets {
		if ids == nil {
			ids = []int64{}
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode case ids", goerr.V(StoreKeyKey, name))
		}
		out[name] = data
	}

	return out, nil
}

// update applies fn to a copy of the state. When fn reports a change, the
// keys whose encoding changed are persisted and the copy becomes the current
// state. A single changed key is a plain Put, several go through PutMany.
func (s *UnreadStore) update(ctx context.Context, fn func(state *model.UnreadState) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if !fn(next) {
		return nil
	}

	prev, err := encodeState(s.state)
	if err != nil {
		return err
	}
	encoded, err := encodeState(next)
	if err != nil {
		return err
	}
	entries := make(map[string][]byte, len(encoded))
	for name, data := range encoded {
		if !bytes.Equal(prev[name], data) {
			entries[s.key(name)] = data
		}
	}

	switch len(entries) {
	case 0:
	case 1:
		for key, data := range entries {
			err = s.kv.Put(ctx, key, data)
		}
	default:
		err = s.kv.PutMany(ctx, entries)
	}
	if err != nil {
		return goerr.Wrap(err, "failed to persist unread state", goerr.V(NamespaceKey, s.namespace))
	}

	s.state = next
	return nil
}

// LastSeen returns the last read position of a case
func (s *UnreadStore) LastSeen(caseID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.LastSeen[caseID]
	return t, ok
}

// MarkRead records that the viewer has read the case up to t. lastSeen and
// lastNotified move forward to t and the unread flag is cleared. A zero t or
// a t not newer than the previous MarkRead of the case is a no-op.
func (s *UnreadStore) MarkRead(ctx context.Context, caseID int64, t time.Time) error {
	if t.IsZero() {
		return nil
	}

	return s.update(ctx, func(state *model.UnreadState) bool {
		if marked, ok := state.Marked[caseID]; ok && !t.After(marked) {
			return false
		}

		state.Marked[caseID] = t
		bumpTime(state.LastSeen, caseID, t)
		bumpTime(state.LastNotified, caseID, t)
		delete(state.Unread, caseID)
		return true
	})
}

// MarkUnread flags the case unread. Flagging an unread case again is a no-op.
func (s *UnreadStore) MarkUnread(ctx context.Context, caseID int64) error {
	return s.update(ctx, func(state *model.UnreadState) bool {
		if state.IsUnread(caseID) {
			return false
		}
		state.Unread[caseID] = struct{}{}
		return true
	})
}

// ShouldNotify reports whether a toast for activity at latest is due. Muted
// cases never notify. A case never notified before always does.
func (s *UnreadStore) ShouldNotify(caseID int64, latest time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shouldNotify(s.state, caseID, latest)
}

func shouldNotify(state *model.UnreadState, caseID int64, latest time.Time) bool {
	if state.IsDismissed(caseID) {
		return false
	}
	notified, ok := state.LastNotified[caseID]
	return !ok || latest.After(notified)
}

// RecordNotified records that a toast for activity at t was shown. Older
// timestamps than the recorded one are ignored.
func (s *UnreadStore) RecordNotified(ctx context.Context, caseID int64, t time.Time) error {
	if t.IsZero() {
		return nil
	}
	return s.update(ctx, func(state *model.UnreadState) bool {
		return bumpTime(state.LastNotified, caseID, t)
	})
}

// Dismiss mutes toasts for the case. Unread tracking continues.
func (s *UnreadStore) Dismiss(ctx context.Context, caseID int64) error {
	return s.update(ctx, func(state *model.UnreadState) bool {
		if state.IsDismissed(caseID) {
			return false
		}
		state.Dismissed[caseID] = struct{}{}
		return true
	})
}

// Undismiss unmutes toasts for the case
func (s *UnreadStore) Undismiss(ctx context.Context, caseID int64) error {
	return s.update(ctx, func(state *model.UnreadState) bool {
		if !state.IsDismissed(caseID) {
			return false
		}
		delete(state.Dismissed, caseID)
		return true
	})
}

// State returns the derived state of the case
func (s *UnreadStore) State(caseID int64) types.CaseState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.State(caseID)
}

// Snapshot returns a copy of the current state
func (s *UnreadStore) Snapshot() *model.UnreadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// bumpTime sets m[id] = max(m[id], t) and reports whether it changed
func bumpTime(m map[int64]time.Time, id int64, t time.Time) bool {
	if cur, ok := m[id]; ok && !t.After(cur) {
		return false
	}
	m[id] = t
	return true
}
