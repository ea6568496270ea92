package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"challenge-arena/internal/infra/memory"
	"challenge-arena/internal/questionbank"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankRepository caches question banks in Redis as JSON and falls back to
// a loader on cache miss:
//
//	SET arena:bank:{name} {json} EX ttl
type BankRepository struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewBankRepository(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *BankRepository) GetBank(ctx context.Context, name string) (questionbank.Bank, error) {
	if bank, ok := r.cached(ctx, name); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.cached(ctx, name); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, name)
		if err != nil {
			return questionbank.Bank{}, err
		}

		raw, err := json.Marshal(bank)
		if err == nil {
			err = r.client.Set(ctx, r.key(name), raw, r.ttlWithJitter()).Err()
		}
		if err != nil {
			log.Printf("cache bank %s: %v", name, err)
		}
		return bank, nil
	})
	if err != nil {
		return questionbank.Bank{}, err
	}
	return result.(questionbank.Bank), nil
}

func (r *BankRepository) cached(ctx context.Context, name string) (questionbank.Bank, bool) {
	raw, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read bank cache %s: %v", name, err)
		}
		return questionbank.Bank{}, false
	}
	bank, err := questionbank.Decode(raw)
	if err != nil {
		log.Printf("bank cache %s corrupt: %v", name, err)
		return questionbank.Bank{}, false
	}
	return bank, true
}

func (r *BankRepository) key(name string) string {
	return "arena:bank:" + name
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
