package firestore

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/interfaces"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const kvCollection = "unread_state"

// Firestore stores each key as one document of the unread_state collection
type Firestore struct {
	client           *firestore.Client
	collectionPrefix string
	clientOptions    []option.ClientOption
}

var _ interfaces.KVStore = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// WithClientOptions passes options such as credentials to the Firestore client
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(f *Firestore) {
		f.clientOptions = append(f.clientOptions, opts...)
	}
}

// kvDoc is the Firestore persistence model
type kvDoc struct {
	Key       string    `firestore:"key"`
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	f := &Firestore{}
	for _, opt := range opts {
		opt(f)
	}

	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, f.clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}
	f.client = client

	return f, nil
}

func (f *Firestore) collection() *firestore.CollectionRef {
	if f.collectionPrefix != "" {
		return f.client.Collection(f.collectionPrefix + "_" + kvCollection)
	}
	return f.client.Collection(kvCollection)
}

// docID maps a key to a valid document ID. Document IDs must not contain '/'.
func docID(key string) string {
	return strings.ReplaceAll(key, "/", ":")
}

func (f *Firestore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := f.collection().Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}

	var doc kvDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal document", goerr.V("key", key))
	}
	return doc.Value, nil
}

func (f *Firestore) Put(ctx context.Context, key string, value []byte) error {
	doc := &kvDoc{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if _, err := f.collection().Doc(docID(key)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to save document", goerr.V("key", key))
	}
	return nil
}

// PutMany writes all entries in a single transaction
func (f *Firestore) PutMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for key, value := range entries {
			doc := &kvDoc{Key: key, Value: value, UpdatedAt: now}
			if err := tx.Set(f.collection().Doc(docID(key)), doc); err != nil {
				return goerr.Wrap(err, "failed to stage document", goerr.V("key", key))
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save documents", goerr.V("count", len(entries)))
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, key string) error {
	if _, err := f.collection().Doc(docID(key)).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to delete document", goerr.V("key", key))
	}
	return nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
