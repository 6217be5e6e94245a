package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nilch/nilch-api/internal/cache"
	"github.com/nilch/nilch-api/internal/logging"
)

// Fetcher 抽象上游搜索调用，可能缓慢也可能失败；brave.Client 是线上实现。
type Fetcher interface {
	FetchWeb(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error)
}

// Resolver 决定每个查询走缓存还是回源，并维持缓存一致性。
// 上游抓取始终发生在缓存锁之外，只有抓取成功后的 Put 会短暂持锁；
// 同一 key 的并发未命中各自回源，结果互相覆盖等价（良性重复，不引入
// singleflight，见 DESIGN.md）。
type Resolver struct {
	store   cache.Store
	fetcher Fetcher
	logger  *logrus.Logger
}

// NewResolver 组装 Query Mediator；store 与 fetcher 不能为空。
func NewResolver(store cache.Store, fetcher Fetcher, logger *logrus.Logger) *Resolver {
	return &Resolver{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve 按 “缓存命中直接返回 → 未命中回源 → 成功写缓存” 的顺序处理查询。
// 上游失败原样向上传播，绝不缓存失败结果。
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]json.RawMessage, error) {
	key := q.CacheKey()

	if blob, ok := r.store.Get(key); ok {
		results, err := decodeResults(blob)
		if err == nil {
			r.logResolve(q, true)
			return results, nil
		}
		// 缓存中的 blob 理论上总是合法 JSON；损坏时按未命中处理。
		r.logDecodeFailure(q, err)
	}

	results, err := r.fetcher.FetchWeb(ctx, q.Term, q.Safe, q.Videos, q.Page)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results for cache: %w", err)
	}
	r.store.Put(key, blob)

	r.logResolve(q, false)
	return results, nil
}

func decodeResults(blob []byte) ([]json.RawMessage, error) {
	var results []json.RawMessage
	if err := json.Unmarshal(blob, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) logResolve(q Query, hit bool) {
	if r.logger == nil {
		return
	}
	fields := logging.SearchFields(q.Term, q.Safe, q.Videos, q.Page, hit)
	fields["action"] = "resolve"
	r.logger.WithFields(fields).Info("查询解析完成")
}

func (r *Resolver) logDecodeFailure(q Query, err error) {
	if r.logger == nil {
		return
	}
	fields := logging.SearchFields(q.Term, q.Safe, q.Videos, q.Page, false)
	fields["action"] = "cache_decode"
	r.logger.WithFields(fields).Warn(err.Error())
}
