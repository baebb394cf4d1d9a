package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"science-quiz/internal/domain"
)

// BankLoader fetches a question bank from a backing store (embedded file, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, id string) (domain.Bank, error)
}

// BankRepository caches whole banks in Redis as JSON and falls back to a loader on miss.
// Banks are stored as: SET quiz:bank:{id} <json> EX ttl
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, id string) (domain.Bank, error) {
	if bank, ok := r.fromCache(ctx, id); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Another caller may have filled the cache meanwhile.
		if bank, ok := r.fromCache(ctx, id); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, id)
		if err != nil {
			return domain.Bank{}, err
		}

		if data, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, bankKey(id), data, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.Bank{}, err
	}
	return result.(domain.Bank), nil
}

// fromCache treats any Redis or decode failure as a miss.
func (r *BankRepository) fromCache(ctx context.Context, id string) (domain.Bank, bool) {
	raw, err := r.client.Get(ctx, bankKey(id)).Bytes()
	if err != nil {
		return domain.Bank{}, false
	}
	var bank domain.Bank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.Bank{}, false
	}
	if err := domain.ValidateBank(bank); err != nil {
		return domain.Bank{}, false
	}
	return bank, true
}

func bankKey(id string) string {
	return "quiz:bank:" + id
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
