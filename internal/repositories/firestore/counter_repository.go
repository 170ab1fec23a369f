package firestore

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	pfirestore "github.com/velvra/api/internal/platform/firestore"
	"github.com/velvra/api/internal/repositories"
)

const (
	countersCollection  = "counters"
	counterShardsSubcol = "shards"
	defaultShardCount   = 8
)

type counterShardDocument struct {
	Count     int64     `firestore:"count"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CounterRepository implements repositories.CounterRepository with sharded
// Firestore counters. Each counter spreads writes across a fixed set of shard
// documents so hot keys (product view tallies) avoid single-document
// contention; reads sum the shards.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.BaseRepository[counterShardDocument]
	shards   int
}

// NewCounterRepository constructs a Firestore-backed counter repository.
// shardCount <= 0 selects the default.
func NewCounterRepository(provider *pfirestore.Provider, shardCount int) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	base := pfirestore.NewBaseRepository[counterShardDocument](provider, countersCollection, nil, nil)
	return &CounterRepository{
		provider: provider,
		counters: base,
		shards:   shardCount,
	}, nil
}

// Increment adds delta to the counter by applying a server-side increment to a
// randomly chosen shard.
func (r *CounterRepository) Increment(ctx context.Context, counterID string, delta int64) error {
	if r == nil || r.provider == nil {
		return errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return errors.New("counter repository: counter id is required")
	}
	if delta == 0 {
		return nil
	}

	shard := rand.Intn(r.shards)
	ref, err := r.shardRef(ctx, id, shard)
	if err != nil {
		return err
	}

	_, err = ref.Set(ctx, map[string]any{
		"count":     firestore.Increment(delta),
		"updatedAt": time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return pfirestore.WrapError("counters.increment", err)
	}
	return nil
}

// Value sums the shard documents for a single counter. Counters that were
// never incremented read as zero.
func (r *CounterRepository) Value(ctx context.Context, counterID string) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, errors.New("counter repository: counter id is required")
	}
	return r.sumShards(ctx, id)
}

// Values resolves several counters in one call. Missing counters map to zero
// so callers can merge the result without existence checks.
func (r *CounterRepository) Values(ctx context.Context, counterIDs []string) (map[string]int64, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("counter repository not initialised")
	}

	values := make(map[string]int64, len(counterIDs))
	for _, counterID := range counterIDs {
		id := strings.TrimSpace(counterID)
		if id == "" {
			continue
		}
		if _, ok := values[id]; ok {
			continue
		}
		total, err := r.sumShards(ctx, id)
		if err != nil {
			return nil, err
		}
		values[id] = total
	}
	return values, nil
}

func (r *CounterRepository) sumShards(ctx context.Context, counterID string) (int64, error) {
	parent, err := r.counters.DocumentRef(ctx, counterID)
	if err != nil {
		return 0, err
	}

	iter := parent.Collection(counterShardsSubcol).Documents(ctx)
	defer iter.Stop()

	var total int64
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return 0, pfirestore.WrapError("counters.value", err)
		}

		var doc counterShardDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return 0, pfirestore.WrapError("counters.value", fmt.Errorf("decode shard %s: %w", snapshot.Ref.ID, err))
		}
		total += doc.Count
	}
	return total, nil
}

func (r *CounterRepository) shardRef(ctx context.Context, counterID string, shard int) (*firestore.DocumentRef, error) {
	parent, err := r.counters.DocumentRef(ctx, counterID)
	if err != nil {
		return nil, err
	}
	return parent.Collection(counterShardsSubcol).Doc(strconv.Itoa(shard)), nil
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)
