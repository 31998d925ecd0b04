package db

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// Storing cache keys in concurrent data structures to allow for clearing all caches of a certain type.
// gen is bumped by every clear; a value loaded under an older generation is not stored.
type keySet struct {
	sync.Mutex
	m   map[string]struct{}
	gen uint64
}

var (
	Cache                *ristretto.Cache
	AccountCacheKeys     = &keySet{m: make(map[string]struct{})}
	TransactionCacheKeys = &keySet{m: make(map[string]struct{})}
	UserCacheKeys        = &keySet{m: make(map[string]struct{})}
)

func InitCache() error {
	var err error
	Cache, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	return nil
}

func AccountsCacheKey(userID int64) string { return fmt.Sprintf("accounts:%d", userID) }

func TransactionsCacheKey(limit int) string { return fmt.Sprintf("transactions:%d", limit) }

func UserCacheKey(userID int64) string { return fmt.Sprintf("user:%d", userID) }

func GetCache(cacheKey string) (interface{}, bool) {
	if Cache == nil {
		return nil, false
	}
	return Cache.Get(cacheKey)
}

func (k *keySet) generation() uint64 {
	k.Lock()
	defer k.Unlock()
	return k.gen
}

// set stores value unless the family was cleared since gen was read.
func (k *keySet) set(cacheKey string, value interface{}, gen uint64) bool {
	if Cache == nil {
		return false
	}
	k.Lock()
	defer k.Unlock()
	if gen != k.gen {
		return false
	}
	k.m[cacheKey] = struct{}{}
	Cache.Set(cacheKey, value, 1)
	// Make the value visible to the next Get; sync reads are rare enough.
	Cache.Wait()
	return true
}

func (k *keySet) del(cacheKey string) {
	k.Lock()
	defer k.Unlock()
	k.gen++
	delete(k.m, cacheKey)
	if Cache != nil {
		Cache.Del(cacheKey)
	}
}

func (k *keySet) clear() {
	k.Lock()
	defer k.Unlock()
	k.gen++
	if Cache != nil {
		for key := range k.m {
			Cache.Del(key)
		}
	}
	k.m = make(map[string]struct{})
}

// Account Cache Functions. Read the generation before loading from the DB.
func AccountCacheGeneration() uint64 { return AccountCacheKeys.generation() }
func SetAccountCache(cacheKey string, value interface{}, gen uint64) bool {
	return AccountCacheKeys.set(cacheKey, value, gen)
}
func ClearAllAccountCaches() { AccountCacheKeys.clear() }

// Transaction Cache Functions
func TransactionCacheGeneration() uint64 { return TransactionCacheKeys.generation() }
func SetTransactionCache(cacheKey string, value interface{}, gen uint64) bool {
	return TransactionCacheKeys.set(cacheKey, value, gen)
}
func ClearAllTransactionCaches() { TransactionCacheKeys.clear() }

// User Cache Functions
func UserCacheGeneration() uint64 { return UserCacheKeys.generation() }
func SetUserCache(cacheKey string, value interface{}, gen uint64) bool {
	return UserCacheKeys.set(cacheKey, value, gen)
}
func DelUserCache(cacheKey string) { UserCacheKeys.del(cacheKey) }
func ClearAllUserCaches()          { UserCacheKeys.clear() }

// ClearCacheByName clears one named cache family ("accounts", "transactions",
// "users" or "all").
func ClearCacheByName(name string) error {
	switch name {
	case "accounts":
		ClearAllAccountCaches()
	case "transactions":
		ClearAllTransactionCaches()
	case "users":
		ClearAllUserCaches()
	case "all":
		ClearAllAccountCaches()
		ClearAllTransactionCaches()
		ClearAllUserCaches()
	default:
		return fmt.Errorf("unknown cache: %s", name)
	}
	return nil
}
