package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"challenge-arena/internal/domain"
	"challenge-arena/internal/questionbank"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a question bank from a backing store (file, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, name string) (questionbank.Bank, error)
}

// BankRepository caches banks with TTL to avoid repeated loads.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      questionbank.Bank
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, name string) (questionbank.Bank, error) {
	if bank, ok := r.lookup(name, r.clock()); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		now := r.clock()
		if bank, ok := r.lookup(name, now); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, name)
		if err != nil {
			return questionbank.Bank{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedBank{bank: bank, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return questionbank.Bank{}, err
	}
	return result.(questionbank.Bank), nil
}

func (r *BankRepository) lookup(name string, now time.Time) (questionbank.Bank, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[name]
	if !ok || !entry.expiresAt.After(now) {
		return questionbank.Bank{}, false
	}
	return entry.bank, true
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

// StaticBankLoader serves banks from a map (built-in catalogue, tests).
type StaticBankLoader struct {
	banks map[string]questionbank.Bank
}

func NewStaticBankLoader(banks map[string]questionbank.Bank) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, name string) (questionbank.Bank, error) {
	if bank, ok := l.banks[name]; ok {
		return bank, nil
	}
	return questionbank.Bank{}, domain.ErrBankNotFound
}

// FileBankLoader reads the bank from a YAML or JSON file on every load;
// wrap it in a BankRepository to cache.
type FileBankLoader struct {
	path string
}

func NewFileBankLoader(path string) *FileBankLoader {
	return &FileBankLoader{path: path}
}

func (l *FileBankLoader) LoadBank(_ context.Context, _ string) (questionbank.Bank, error) {
	return questionbank.LoadFile(l.path)
}
