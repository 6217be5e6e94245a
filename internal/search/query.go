package search

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Query 是归一化后的搜索请求，所有影响结果的参数都参与缓存键派生。
type Query struct {
	Term   string
	Safe   string
	Videos bool
	Page   int
}

// Normalize 填充默认值并裁剪参数，保证相同语义的请求派生出相同的键。
func (q Query) Normalize(defaultSafe string) Query {
	q.Term = strings.TrimSpace(q.Term)
	q.Safe = strings.ToLower(strings.TrimSpace(q.Safe))
	if q.Safe == "" {
		q.Safe = defaultSafe
	}
	if q.Page < 0 {
		q.Page = 0
	}
	return q
}

// CacheKey 基于全部参数做确定性派生。使用 NUL 分隔避免字段拼接歧义，
// sha1 让键长度固定（与磁盘无关，仅作为 map 键使用）。
func (q Query) CacheKey() string {
	raw := fmt.Sprintf("%s\x00%s\x00%t\x00%d", q.Term, q.Safe, q.Videos, q.Page)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
