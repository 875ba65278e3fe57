package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cantonscan/config"
	"cantonscan/models"
)

type CacheMode string

const (
	CacheModeRedis    CacheMode = "redis"
	CacheModeInMemory CacheMode = "in-memory"
)

const (
	keyNetworkStats = "network:stats"
	keyValidators   = "validators"
)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// CacheService keeps warm dashboard snapshots (network stats, validator
// list) so read endpoints never block on upstream fetches. It prefers Redis
// and degrades to an in-memory store when Redis is unreachable; a health
// loop switches back once Redis recovers. Values are stored as JSON in both
// backends so a mode switch never changes what callers see.
type CacheService struct {
	cfg *config.Config
	api *ScanAPI

	redis     *redis.Client
	mode      CacheMode
	modeMutex sync.RWMutex

	memory sync.Map // map[string]*memoryItem

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewCacheService(cfg *config.Config, api *ScanAPI) *CacheService {
	cs := &CacheService{
		cfg:      cfg,
		api:      api,
		mode:     CacheModeInMemory,
		stopChan: make(chan struct{}),
	}
	if cfg.Redis.Enabled {
		cs.connectRedis()
	}
	return cs
}

func (cs *CacheService) connectRedis() {
	addr := cs.cfg.Redis.Address
	if addr == "" {
		addr = "localhost:6379"
	}

	options := &redis.Options{
		Addr:         addr,
		Password:     cs.cfg.Redis.Password,
		DB:           cs.cfg.Redis.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
	}
	if cs.cfg.Redis.UseTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cs.redis = redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := cs.redis.Ping(ctx).Result(); err != nil {
		log.Printf("Redis connection failed: %v, using in-memory cache", err)
		cs.setMode(CacheModeInMemory)
		return
	}

	log.Printf("Redis connected at %s", addr)
	cs.setMode(CacheModeRedis)
}

func (cs *CacheService) setMode(mode CacheMode) {
	cs.modeMutex.Lock()
	defer cs.modeMutex.Unlock()
	if cs.mode != mode {
		cs.mode = mode
		log.Printf("Cache mode changed: %s", mode)
	}
}

func (cs *CacheService) Mode() CacheMode {
	cs.modeMutex.RLock()
	defer cs.modeMutex.RUnlock()
	return cs.mode
}

// StartWarmer warms the cache immediately and then keeps it refreshed on the
// configured stats interval. Also starts the Redis health loop.
func (cs *CacheService) StartWarmer() {
	log.Println("Starting cache warmer...")
	cs.Refresh()
	go cs.runRefreshLoop()
	if cs.redis != nil {
		go cs.runHealthCheckLoop()
	}
}

func (cs *CacheService) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stopChan)
		if cs.redis != nil {
			cs.redis.Close()
		}
	})
}

func (cs *CacheService) runRefreshLoop() {
	ticker := time.NewTicker(cs.cfg.StatsIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.Refresh()
		case <-cs.stopChan:
			return
		}
	}
}

func (cs *CacheService) runHealthCheckLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.checkRedisHealth()
		case <-cs.stopChan:
			return
		}
	}
}

func (cs *CacheService) checkRedisHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cs.redis.Ping(ctx).Result()
	switch cs.Mode() {
	case CacheModeRedis:
		if err != nil {
			log.Printf("Redis health check failed: %v, degrading to in-memory", err)
			cs.setMode(CacheModeInMemory)
		}
	case CacheModeInMemory:
		if err == nil {
			log.Println("Redis reconnected, switching back")
			cs.setMode(CacheModeRedis)
		}
	}
}

// Refresh fetches fresh snapshots and updates the cache. Each snapshot is
// independent; one failing fetch leaves the others intact.
func (cs *CacheService) Refresh() {
	start := time.Now()
	ttl := 2 * cs.cfg.StatsIntervalDuration()

	stats, err := cs.api.GetNetworkStats()
	if err != nil {
		log.Printf("Cache refresh: network stats failed: %v", err)
	} else {
		cs.set(keyNetworkStats, stats, ttl)
	}

	validators, err := cs.api.GetValidatorLiveness()
	if err != nil {
		log.Printf("Cache refresh: validators failed: %v", err)
	} else {
		cs.set(keyValidators, validators, ttl)
	}

	log.Printf("Cache refreshed in %s | mode: %s", time.Since(start), cs.Mode())
}

func (cs *CacheService) set(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("Cache set failed to marshal %s: %v", key, err)
		return
	}

	if cs.Mode() == CacheModeRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := cs.redis.Set(ctx, key, data, ttl).Err()
		if err == nil {
			return
		}
		log.Printf("Redis SET failed for %s: %v, falling back to in-memory", key, err)
	}
	cs.memory.Store(key, &memoryItem{data: data, expiresAt: time.Now().Add(ttl)})
}

func (cs *CacheService) get(key string) ([]byte, bool) {
	if cs.Mode() == CacheModeRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		data, err := cs.redis.Get(ctx, key).Bytes()
		if err == nil {
			return data, true
		}
		if err != redis.Nil {
			log.Printf("Redis GET failed for %s: %v, checking in-memory", key, err)
		}
	}

	val, ok := cs.memory.Load(key)
	if !ok {
		return nil, false
	}
	item := val.(*memoryItem)
	if time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.data, true
}

// GetNetworkStats returns the cached snapshot, or false when nothing warm
// is available.
func (cs *CacheService) GetNetworkStats() (*models.NetworkStats, bool) {
	data, ok := cs.get(keyNetworkStats)
	if !ok {
		return nil, false
	}
	var stats models.NetworkStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

// GetValidators returns the cached validator list.
func (cs *CacheService) GetValidators() ([]models.ValidatorInfo, bool) {
	data, ok := cs.get(keyValidators)
	if !ok {
		return nil, false
	}
	var validators []models.ValidatorInfo
	if err := json.Unmarshal(data, &validators); err != nil {
		return nil, false
	}
	return validators, true
}

// Clear drops the warm snapshots from both backends.
func (cs *CacheService) Clear() {
	for _, key := range []string{keyNetworkStats, keyValidators} {
		cs.memory.Delete(key)
	}
	if cs.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		cs.redis.Del(ctx, keyNetworkStats, keyValidators)
	}
}
