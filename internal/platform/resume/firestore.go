package resume

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection  = "resume_signals"
	defaultMaxAttempts = 5
)

// FirestoreOption customises the FirestoreStore behaviour.
type FirestoreOption func(*FirestoreStore)

// WithCollection overrides the collection name used to store resume signals.
func WithCollection(name string) FirestoreOption {
	return func(store *FirestoreStore) {
		if name != "" {
			store.collection = name
		}
	}
}

// WithMaxAttempts configures the transaction retry attempts.
func WithMaxAttempts(attempts int) FirestoreOption {
	return func(store *FirestoreStore) {
		if attempts > 0 {
			store.maxAttempts = attempts
		}
	}
}

// FirestoreStore implements Store backed by Google Cloud Firestore.
type FirestoreStore struct {
	client      *firestore.Client
	collection  string
	maxAttempts int
}

// NewFirestoreStore constructs a Firestore-backed resume store.
func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) *FirestoreStore {
	store := &FirestoreStore{
		client:      client,
		collection:  defaultCollection,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Set implements the Store interface.
func (s *FirestoreStore) Set(ctx context.Context, signal Signal) error {
	if strings.TrimSpace(signal.SessionID) == "" {
		return ErrSessionRequired
	}

	ref := s.client.Collection(s.collection).Doc(sessionKey(signal.SessionID))
	_, err := ref.Set(ctx, firestoreSignal{
		SessionID: signal.SessionID,
		ReturnTo:  signal.ReturnTo,
		CreatedAt: signal.CreatedAt.UTC(),
		ExpiresAt: signal.ExpiresAt.UTC(),
	})
	return err
}

// Consume destructively reads the signal inside a transaction so that two
// concurrent logins cannot both replay the same checkout.
func (s *FirestoreStore) Consume(ctx context.Context, sessionID string, now time.Time) (Signal, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Signal{}, false, ErrSessionRequired
	}
	now = now.UTC()

	ref := s.client.Collection(s.collection).Doc(sessionKey(sessionID))
	attempts := s.maxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		signal Signal
		found  bool
	)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		signal, found = Signal{}, false

		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}

		var record firestoreSignal
		if err := snap.DataTo(&record); err != nil {
			return err
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}

		candidate := record.toSignal()
		if candidate.Expired(now) {
			return nil
		}
		signal = candidate
		found = true
		return nil
	}, firestore.MaxAttempts(attempts))
	if err != nil {
		return Signal{}, false, err
	}
	return signal, found, nil
}

type firestoreSignal struct {
	SessionID string    `firestore:"session_id"`
	ReturnTo  string    `firestore:"return_to"`
	CreatedAt time.Time `firestore:"created_at"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

func (r firestoreSignal) toSignal() Signal {
	return Signal{
		SessionID: r.SessionID,
		ReturnTo:  r.ReturnTo,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}
