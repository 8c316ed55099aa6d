// Package watcher subscribes to Firestore collection snapshots and turns
// document diffs into domain events on the bus, decoupling the notifier
// rules from the change-feed technology.
package watcher

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"lmaalem_backend/internal/events"
	"lmaalem_backend/internal/store"
	"lmaalem_backend/platform/logger"
)

// Watcher listens to the calls and requests collections.
type Watcher struct {
	client *firestore.Client
	bus    events.Bus
	log    *logger.Logger
}

// New creates a watcher over the given Firestore client.
func New(client *firestore.Client, bus events.Bus, log *logger.Logger) *Watcher {
	return &Watcher{client: client, bus: bus, log: log}
}

// change is one document change in a snapshot batch. data is nil for
// removals.
type change struct {
	kind firestore.DocumentChangeKind
	id   string
	data map[string]interface{}
}

// changeStream abstracts the snapshot iterator so the diff loop can be
// exercised without a live Firestore connection. Next blocks for the
// next batch; the first batch is the initial snapshot replay.
type changeStream interface {
	Next() ([]change, error)
}

// snapshotStream adapts a Firestore snapshot iterator to changeStream.
type snapshotStream struct {
	snaps *firestore.QuerySnapshotIterator
}

func (s *snapshotStream) Next() ([]change, error) {
	snap, err := s.snaps.Next()
	if err != nil {
		return nil, err
	}
	batch := make([]change, 0, len(snap.Changes))
	for _, c := range snap.Changes {
		ch := change{kind: c.Kind, id: c.Doc.Ref.ID}
		if c.Kind != firestore.DocumentRemoved {
			ch.data = c.Doc.Data()
		}
		batch = append(batch, ch)
	}
	return batch, nil
}

// Run watches both collections until the context is canceled. A stream
// error on either collection stops the watcher; the caller decides
// whether to restart.
func (w *Watcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.watchCollection(gctx, store.CollectionCalls, w.publishCall) })
	g.Go(func() error { return w.watchCollection(gctx, store.CollectionRequests, w.publishRequest) })
	return g.Wait()
}

func (w *Watcher) watchCollection(ctx context.Context, collection string, publish publishFunc) error {
	snaps := w.client.Collection(collection).Snapshots(ctx)
	defer snaps.Stop()
	return w.watch(ctx, collection, &snapshotStream{snaps: snaps}, publish)
}

type publishFunc func(ctx context.Context, id string, before, after map[string]interface{})

// watch consumes one collection's change stream. The stream only carries
// the new document state, so the last-seen data per document is cached
// to reconstruct the before snapshot of each change. The initial batch
// replays the whole collection; it seeds the cache but is not published,
// since those documents were not just written.
func (w *Watcher) watch(ctx context.Context, collection string, stream changeStream, publish publishFunc) error {
	lastSeen := make(map[string]map[string]interface{})

	initial := true
	for {
		batch, err := stream.Next()
		if err != nil {
			if status.Code(err) == codes.Canceled || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch %s: %w", collection, err)
		}

		for _, c := range batch {
			var before, after map[string]interface{}
			switch c.kind {
			case firestore.DocumentAdded:
				after = c.data
			case firestore.DocumentModified:
				before = lastSeen[c.id]
				after = c.data
			case firestore.DocumentRemoved:
				before = lastSeen[c.id]
			}

			if after == nil {
				delete(lastSeen, c.id)
			} else {
				lastSeen[c.id] = after
			}

			if initial {
				continue
			}
			publish(ctx, c.id, before, after)
		}

		if initial {
			w.log.Info("watch established", "collection", collection, "documents", len(lastSeen))
			initial = false
		}
	}
}

func (w *Watcher) publishCall(ctx context.Context, id string, before, after map[string]interface{}) {
	w.bus.Publish(ctx, events.CallWritten{
		BaseEvent: events.NewBaseEvent(),
		CallID:    id,
		Before:    store.CallFromData(before),
		After:     store.CallFromData(after),
	})
}

func (w *Watcher) publishRequest(ctx context.Context, id string, before, after map[string]interface{}) {
	w.bus.Publish(ctx, events.RequestWritten{
		BaseEvent: events.NewBaseEvent(),
		RequestID: id,
		Before:    store.RequestFromData(before),
		After:     store.RequestFromData(after),
	})
}
