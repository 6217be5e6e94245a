package search

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nilch/nilch-api/internal/cache"
)

// fetcherFunc 将函数适配为 Fetcher，便于在测试中注入假上游。
type fetcherFunc func(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error)

func (f fetcherFunc) FetchWeb(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error) {
	return f(ctx, query, safe, videos, page)
}

func staticResults(items ...string) []json.RawMessage {
	results := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		results = append(results, json.RawMessage(item))
	}
	return results
}

func TestResolveMissFetchesAndCaches(t *testing.T) {
	store := newTestStore(t, 4)
	var calls atomic.Int64
	resolver := NewResolver(store, fetcherFunc(func(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error) {
		calls.Add(1)
		return staticResults(`{"title":"r1"}`), nil
	}), nil)

	q := Query{Term: "golang", Safe: "strict"}
	results, err := resolver.Resolve(context.Background(), q)
	if err != nil {
		t.Fatalf("Resolve 返回错误: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("应返回 1 条结果，得到 %d", len(results))
	}
	if calls.Load() != 1 {
		t.Fatalf("未命中应回源一次，得到 %d", calls.Load())
	}
	if store.Len() != 1 {
		t.Fatalf("成功回源后应写入缓存，得到 %d 条", store.Len())
	}
}

func TestResolveHitSkipsUpstream(t *testing.T) {
	store := newTestStore(t, 4)
	var calls atomic.Int64
	resolver := NewResolver(store, fetcherFunc(func(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error) {
		calls.Add(1)
		return staticResults(`{"title":"r1"}`), nil
	}), nil)

	q := Query{Term: "golang", Safe: "strict"}
	if _, err := resolver.Resolve(context.Background(), q); err != nil {
		t.Fatalf("首次 Resolve 失败: %v", err)
	}

	results, err := resolver.Resolve(context.Background(), q)
	if err != nil {
		t.Fatalf("二次 Resolve 失败: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("命中后不应再回源，回源次数 %d", calls.Load())
	}
	if string(results[0]) != `{"title":"r1"}` {
		t.Fatalf("命中结果内容不符: %s", string(results[0]))
	}
}

func TestResolveUpstreamErrorLeavesCacheUntouched(t *testing.T) {
	store := newTestStore(t, 4)
	upstreamErr := errors.New("upstream down")
	resolver := NewResolver(store, fetcherFunc(func(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error) {
		return nil, upstreamErr
	}), nil)

	q := Query{Term: "golang", Safe: "strict"}
	if _, err := resolver.Resolve(context.Background(), q); !errors.Is(err, upstreamErr) {
		t.Fatalf("上游错误应原样传播，得到 %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("失败不应写入缓存，得到 %d 条", store.Len())
	}
	if _, ok := store.Get(q.CacheKey()); ok {
		t.Fatalf("失败的 key 不应存在于缓存")
	}
}

func TestResolveDistinctParamsCachedSeparately(t *testing.T) {
	store := newTestStore(t, 4)
	resolver := NewResolver(store, fetcherFunc(func(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error) {
		return staticResults(`{"page":` + strconv.Itoa(page) + `}`), nil
	}), nil)

	for page := 0; page < 3; page++ {
		q := Query{Term: "golang", Safe: "strict", Page: page}
		if _, err := resolver.Resolve(context.Background(), q); err != nil {
			t.Fatalf("page=%d Resolve 失败: %v", page, err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("不同页码应分别缓存，得到 %d 条", store.Len())
	}
}

func TestResolveConcurrentMissesBothSucceed(t *testing.T) {
	store := newTestStore(t, 4)
	var calls atomic.Int64
	resolver := NewResolver(store, fetcherFunc(func(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond) // 模拟慢上游，让两个未命中重叠
		return staticResults(`{"title":"r1"}`), nil
	}), nil)

	q := Query{Term: "golang", Safe: "strict"}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = resolver.Resolve(context.Background(), q)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("并发 Resolve #%d 失败: %v", i, err)
		}
	}
	// 重复回源是可接受的良性开销，但缓存最终只保留该 key 的一份条目。
	if store.Len() != 1 {
		t.Fatalf("并发未命中后缓存应只有一份条目，得到 %d", store.Len())
	}
	if calls.Load() < 1 || calls.Load() > 2 {
		t.Fatalf("回源次数应为 1 或 2，得到 %d", calls.Load())
	}
}

func newTestStore(t *testing.T, capacity int) cache.Store {
	t.Helper()
	store, err := cache.NewStore(capacity)
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}
	return store
}
