package infobox

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Infobox 是返回给前端的即时答案载荷，infotype 决定其它字段的含义。
// 字段集合与旧版前端的约定保持一致。
type Infobox struct {
	Infotype   string `json:"infotype"`
	Equ        string `json:"equ,omitempty"`
	Result     string `json:"result,omitempty"`
	Word       string `json:"word,omitempty"`
	Type       string `json:"type,omitempty"`
	Definition string `json:"definition,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	Info       string `json:"info,omitempty"`
}

// 默认的公共 REST API 入口，测试中用 httptest 覆盖。
const (
	DefaultWiktionaryBase = "https://en.wiktionary.org/api/rest_v1"
	DefaultWikipediaBase  = "https://en.wikipedia.org/api/rest_v1"
)

// Options 控制 Resolver 的外部依赖，HTTPClient 与代理层共享。
type Options struct {
	HTTPClient     *http.Client
	Logger         *logrus.Logger
	UserAgent      string
	WiktionaryBase string
	WikipediaBase  string
}

// Resolver 按优先级解析即时答案：计算器 → 词典释义 → Wikipedia 摘要。
// 任何一步失败都静默跳过，infobox 缺失不是错误。
type Resolver struct {
	httpClient     *http.Client
	logger         *logrus.Logger
	userAgent      string
	wiktionaryBase string
	wikipediaBase  string
}

// NewResolver 构建 Resolver 并填充默认 API 入口。
func NewResolver(opts Options) *Resolver {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.WiktionaryBase == "" {
		opts.WiktionaryBase = DefaultWiktionaryBase
	}
	if opts.WikipediaBase == "" {
		opts.WikipediaBase = DefaultWikipediaBase
	}
	return &Resolver{
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
		userAgent:      opts.UserAgent,
		wiktionaryBase: opts.WiktionaryBase,
		wikipediaBase:  opts.WikipediaBase,
	}
}

// Lookup 依次尝试各类即时答案，第一个命中的生效；全部落空返回 nil。
func (r *Resolver) Lookup(ctx context.Context, webResults []json.RawMessage, query string) *Infobox {
	if box := r.solveMath(query); box != nil {
		return box
	}
	if box := r.lookupDefinition(ctx, query); box != nil {
		return box
	}
	return r.lookupWikipedia(ctx, webResults)
}

// getJSON 执行一次带 UA 的 GET 并解码 JSON；非 200 或解码失败都视为未命中。
func (r *Resolver) getJSON(ctx context.Context, url string, target interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logLookupFailure(url, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		r.logLookupFailure(url, err)
		return false
	}
	return true
}

func (r *Resolver) logLookupFailure(url string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(logrus.Fields{
		"action": "infobox_lookup",
		"url":    url,
	}).Debug(err.Error())
}
