package usecase_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/repository/memory"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
)

var errAPIDown = errors.New("api down")

// fakeAPI is an in-memory lexiconnect.Service
type fakeAPI struct {
	mu        sync.Mutex
	cases     []*model.Case
	notes     map[int64][]model.Note
	docs      map[int64][]model.Document
	reviews   map[int64][]model.ReviewLink
	notesErr  map[int64]error
	reviewErr map[int64]error
	casesErr  error

	// hold blocks the next FetchCaseNotes call until closed
	hold     chan struct{}
	entered  chan struct{}
	calls    int
	returned int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		notes:     make(map[int64][]model.Note),
		docs:      make(map[int64][]model.Document),
		reviews:   make(map[int64][]model.ReviewLink),
		notesErr:  make(map[int64]error),
		reviewErr: make(map[int64]error),
	}
}

func (f *fakeAPI) addCase(id int64, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cases = append(f.cases, &model.Case{ID: id, Title: title})
}

func (f *fakeAPI) setNotes(caseID int64, notes ...model.Note) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[caseID] = notes
}

func (f *fakeAPI) addNote(caseID int64, n model.Note) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[caseID] = append(f.notes[caseID], n)
}

func (f *fakeAPI) setNotesErr(caseID int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notesErr[caseID] = err
}

func (f *fakeAPI) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAPI) returnedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.returned
}

func (f *fakeAPI) ListCases(_ context.Context) ([]*model.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casesErr != nil {
		return nil, f.casesErr
	}
	return slices.Clone(f.cases), nil
}

func (f *fakeAPI) FetchCaseNotes(ctx context.Context, caseID int64) ([]model.Note, error) {
	f.mu.Lock()
	f.calls++
	notes := slices.Clone(f.notes[caseID])
	err := f.notesErr[caseID]
	hold, entered := f.hold, f.entered
	f.hold, f.entered = nil, nil
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.returned++
		f.mu.Unlock()
	}()

	if hold != nil {
		entered <- struct{}{}
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (f *fakeAPI) FetchCaseDocuments(_ context.Context, caseID int64) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.docs[caseID]), nil
}

func (f *fakeAPI) FetchDocumentReviewLinks(_ context.Context, documentID int64) ([]model.ReviewLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reviewErr[documentID]; err != nil {
		return nil, err
	}
	return slices.Clone(f.reviews[documentID]), nil
}

func newStore(t *testing.T) (*usecase.UnreadStore, *memory.Memory) {
	t.Helper()
	kv := memory.New()
	store, err := usecase.NewUnreadStore(context.Background(), kv, "viewer-1")
	gt.NoError(t, err).Required()
	return store, kv
}

func conversation(caseID int64, notes ...model.Note) *model.Conversation {
	return &model.Conversation{CaseID: caseID, Items: usecase.Merge(notes, nil)}
}
