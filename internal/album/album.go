// Package album is the collected-cards list: a deduplicated,
// most-recently-added-first sequence of card identifiers held in
// persistent storage and enriched on read from the backend.
package album

import (
	"context"
	"sync"

	"github.com/kvistad/russekort/internal/models"
)

// StorageKey is the single well-known key the identifier list lives
// under, shared by every store implementation.
const StorageKey = "russekort_album_v1"

// Store persists the raw identifier list. Implementations must treat
// absent or unreadable data as an empty list, never as an error.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// CardGetter resolves an identifier to its current card record.
type CardGetter interface {
	GetCard(ctx context.Context, id string) (*models.Card, error)
}

// Insert returns ids with id at the front. An already-present id is moved
// to the front rather than duplicated.
func Insert(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, id)
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Filter returns ids without id.
func Filter(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Album combines a store with a card source.
type Album struct {
	store Store
	cards CardGetter
}

func New(store Store, cards CardGetter) *Album {
	return &Album{store: store, cards: cards}
}

// Add inserts id at the front of the persisted list. Idempotent: adding a
// present id only moves it forward.
func (a *Album) Add(ctx context.Context, id string) error {
	ids, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	return a.store.Save(ctx, Insert(ids, id))
}

// Remove drops id from the persisted list. Removing an absent id is a
// no-op that still re-persists.
func (a *Album) Remove(ctx context.Context, id string) error {
	ids, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	return a.store.Save(ctx, Filter(ids, id))
}

// IDs returns the persisted identifier list, newest first.
func (a *Album) IDs(ctx context.Context) ([]string, error) {
	return a.store.Load(ctx)
}

// Load resolves every stored identifier to its current record. Fetches
// run concurrently; identifiers whose fetch fails are skipped and the
// stored order is preserved regardless of completion order.
func (a *Album) Load(ctx context.Context) ([]*models.Card, error) {
	ids, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([]*models.Card, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			card, err := a.cards.GetCard(ctx, id)
			if err != nil {
				return
			}
			slots[i] = card
		}(i, id)
	}
	wg.Wait()

	cards := make([]*models.Card, 0, len(ids))
	for _, card := range slots {
		if card != nil {
			cards = append(cards, card)
		}
	}
	return cards, nil
}
