package cache

import "errors"

// Store 负责管理搜索结果的内存缓存。容量固定，淘汰遵循严格 FIFO：
// 最早插入的 key 最先被淘汰，Get 不会改变任何条目的淘汰顺序。
type Store interface {
	// Get 返回 key 对应的条目副本。未命中返回 (nil, false)，不是错误。
	Get(key string) ([]byte, bool)

	// Put 写入或覆盖条目。key 已存在时就地更新且保留原有 FIFO 位置；
	// 新 key 在容量已满时会先淘汰最早插入的条目。容量为 0 时 Put 是 no-op。
	Put(key string, value []byte)

	// Len 返回当前条目数，恒满足 0 <= Len() <= capacity。
	Len() int

	// Snapshot 输出诊断计数，供 /-/cache 路由使用。
	Snapshot() Stats
}

// Stats 汇总缓存的运行指标，仅用于诊断输出。
type Stats struct {
	Len       int    `json:"len"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// ErrInvalidCapacity 表示构造时传入了负容量，属于启动期配置错误。
var ErrInvalidCapacity = errors.New("cache capacity must not be negative")
