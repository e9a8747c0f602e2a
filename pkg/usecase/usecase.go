package usecase

import (
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/service/lexiconnect"
	"github.com/secmon-lab/lexiconnect/pkg/service/toast"
)

type UseCases struct {
	api              lexiconnect.Service
	store            *UnreadStore
	toaster          toast.Toaster
	fetchConcurrency int
	pollConcurrency  int
	watchInterval    time.Duration

	Conversation *ConversationUseCase
	Unread       *UnreadUseCase
	Watcher      *ConversationWatcher
}

type Option func(*UseCases)

// WithToaster sets where poll toasts are delivered. Without it toasts are
// evaluated but never shown.
func WithToaster(t toast.Toaster) Option {
	return func(uc *UseCases) {
		uc.toaster = t
	}
}

func WithFetchConcurrency(n int) Option {
	return func(uc *UseCases) {
		uc.fetchConcurrency = n
	}
}

func WithPollConcurrency(n int) Option {
	return func(uc *UseCases) {
		uc.pollConcurrency = n
	}
}

func WithWatchInterval(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.watchInterval = d
	}
}

func New(api lexiconnect.Service, store *UnreadStore, opts ...Option) *UseCases {
	uc := &UseCases{
		api:   api,
		store: store,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Conversation = NewConversationUseCase(api, uc.fetchConcurrency)
	uc.Unread = NewUnreadUseCase(api, uc.Conversation, store, uc.toaster, uc.pollConcurrency)
	uc.Watcher = NewConversationWatcher(uc.Conversation, store, uc.toaster, uc.watchInterval)

	return uc
}

// Store returns the unread state store shared by the use cases
func (uc *UseCases) Store() *UnreadStore {
	return uc.store
}
