// Package firestore is the Cloud Firestore note store.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jwulff/meetingnote/internal/notes"
)

// DefaultCollection is the collection notes live in.
const DefaultCollection = "meetingNotes"

// Options configures a Store.
type Options struct {
	ProjectID  string
	Collection string
	// CredentialsFile is a service account key. Empty uses application
	// default credentials (or the emulator when FIRESTORE_EMULATOR_HOST is set).
	CredentialsFile string
	Logger          *slog.Logger
}

// Store keeps notes in one Firestore collection, one document per note.
type Store struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
	log    *slog.Logger
}

// Open connects to Firestore.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Collection(opts.Collection),
		log:    opts.Logger.With("component", "firestore", "collection", opts.Collection),
	}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) byUser(userID string) firestore.Query {
	return s.coll.Where("userId", "==", userID).OrderBy("createdAt", firestore.Desc)
}

// Subscribe streams query snapshots of the user's notes.
func (s *Store) Subscribe(ctx context.Context, userID string) (<-chan notes.Snapshot, error) {
	it := s.byUser(userID).Snapshots(ctx)
	out := make(chan notes.Snapshot, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if ctx.Err() != nil {
				return
			}
			var snap notes.Snapshot
			if err != nil {
				if errors.Is(err, iterator.Done) {
					return
				}
				snap.Err = fmt.Errorf("listen: %w", err)
			} else {
				snap.Notes, snap.Err = decodeAll(qs.Documents)
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if err != nil {
				// The listener does not recover after an error.
				return
			}
		}
	}()
	return out, nil
}

// List returns the user's notes, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]notes.Note, error) {
	return decodeAll(s.byUser(userID).Documents(ctx))
}

// Get returns one note.
func (s *Store) Get(ctx context.Context, id string) (notes.Note, error) {
	doc, err := s.coll.Doc(id).Get(ctx)
	if doc != nil && !doc.Exists() {
		return notes.Note{}, fmt.Errorf("note %s: %w", id, notes.ErrNotFound)
	}
	if err != nil {
		return notes.Note{}, fmt.Errorf("get note: %w", err)
	}
	return decode(doc)
}

// Create adds a note with server-assigned timestamps.
func (s *Store) Create(ctx context.Context, f notes.Fields) (string, error) {
	ref, _, err := s.coll.Add(ctx, map[string]any{
		"userId":     f.UserID,
		"title":      f.Title,
		"attendees":  f.Attendees,
		"date":       f.Date,
		"transcript": f.Transcript,
		"createdAt":  firestore.ServerTimestamp,
		"updatedAt":  firestore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("add note: %w", err)
	}
	s.log.Debug("note added", "id", ref.ID)
	return ref.ID, nil
}

// Update writes the editable fields. Fails if the note does not exist.
func (s *Store) Update(ctx context.Context, id string, f notes.Fields) error {
	_, err := s.coll.Doc(id).Update(ctx, []firestore.Update{
		{Path: "title", Value: f.Title},
		{Path: "attendees", Value: f.Attendees},
		{Path: "date", Value: f.Date},
		{Path: "transcript", Value: f.Transcript},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Delete removes a note. Fails if the note does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func decodeAll(it *firestore.DocumentIterator) ([]notes.Note, error) {
	docs, err := it.GetAll()
	if err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	out := make([]notes.Note, 0, len(docs))
	for _, doc := range docs {
		n, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decode(doc *firestore.DocumentSnapshot) (notes.Note, error) {
	var n notes.Note
	if err := doc.DataTo(&n); err != nil {
		return notes.Note{}, fmt.Errorf("decode note %s: %w", doc.Ref.ID, err)
	}
	n.ID = doc.Ref.ID
	return n, nil
}

var (
	_ notes.Store  = (*Store)(nil)
	_ notes.Reader = (*Store)(nil)
)
