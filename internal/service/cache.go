// Пакет service — бизнес-логика NFT Store.
// CacheService — LRU-кэш записей NFT с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/nftstore/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nft_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей NFT.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nft_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей NFT.",
	})
)

// CacheService — LRU-кэш записей NFT с автоматическим TTL.
// Записи неизменяемы, поэтому инвалидация не нужна — TTL ограничивает
// только объём памяти при большом числе горячих ключей.
type CacheService struct {
	cache *expirable.LRU[string, *model.NFTRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.NFTRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает запись NFT из кэша по nftID.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(nftID string) (*model.NFTRecord, bool) {
	val, ok := c.cache.Get(nftID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет запись в кэш.
func (c *CacheService) Set(nftID string, rec *model.NFTRecord) {
	c.cache.Add(nftID, rec)
}
