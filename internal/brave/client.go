package brave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL 是 Brave Search REST API 的线上入口，测试中用 httptest 替换。
const DefaultBaseURL = "https://api.search.brave.com/res/v1"

// ErrUpstreamUnavailable 表示轮换完所有 API key 后仍未取得可用响应。
// 调用方据此返回 noresults，绝不缓存失败。
var ErrUpstreamUnavailable = errors.New("brave upstream unavailable")

// ImageResult 是图片搜索条目在响应中的精简形态，仅保留前端需要的两个字段。
type ImageResult struct {
	URL string `json:"url"`
	Img string `json:"img"`
}

// Client 封装对 Brave Search 的访问，负责 API key 轮换与错误归一。
// 单个 key 撞到限流（429）或网络错误时自动换下一个 key 重试。
type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
	baseURL    string
	apiKeys    []string
}

// NewClient 构建 Brave 客户端，httpClient 由 server.NewUpstreamClient 提供并全局复用。
func NewClient(httpClient *http.Client, logger *logrus.Logger, baseURL string, apiKeys []string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		apiKeys:    apiKeys,
	}
}

// FetchWeb 拉取网页或视频搜索结果，结果保持上游原始 JSON 形态。
func (c *Client) FetchWeb(ctx context.Context, query, safe string, videos bool, page int) ([]json.RawMessage, error) {
	resultType := "web"
	if videos {
		resultType = "videos"
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("safesearch", safe)
	params.Set("count", "10")
	params.Set("offset", strconv.Itoa(page))

	body, err := c.request(ctx, fmt.Sprintf("%s/%s/search", c.baseURL, resultType), params)
	if err != nil {
		return nil, err
	}

	if videos {
		var payload struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode videos response: %w", err)
		}
		return payload.Results, nil
	}

	var payload struct {
		Web struct {
			Results []json.RawMessage `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode web response: %w", err)
	}
	return payload.Web.Results, nil
}

// FetchImages 拉取图片搜索结果，仅保留带缩略图的条目并压缩为 {url, img}。
func (c *Client) FetchImages(ctx context.Context, query, safe string) ([]ImageResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("safesearch", safe)

	body, err := c.request(ctx, c.baseURL+"/images/search", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []struct {
			URL       string `json:"url"`
			Thumbnail *struct {
				Src string `json:"src"`
			} `json:"thumbnail"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode images response: %w", err)
	}

	images := make([]ImageResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		if item.Thumbnail == nil {
			continue
		}
		images = append(images, ImageResult{URL: item.URL, Img: item.Thumbnail.Src})
	}
	return images, nil
}

// request 逐个尝试 API key。429/网络错误/非 200 都视为当前 key 不可用，
// 换下一个继续；全部失败时返回 ErrUpstreamUnavailable。
func (c *Client) request(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if len(c.apiKeys) == 0 {
		return nil, fmt.Errorf("%w: no api keys configured", ErrUpstreamUnavailable)
	}

	fullURL := endpoint + "?" + params.Encode()
	for _, key := range c.apiKeys {
		body, status, err := c.doOnce(ctx, fullURL, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logKeyFailure(endpoint, 0, err)
			continue
		}
		if status == http.StatusOK {
			return body, nil
		}
		c.logKeyFailure(endpoint, status, nil)
	}

	return nil, ErrUpstreamUnavailable
}

func (c *Client) doOnce(ctx context.Context, fullURL, key string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := readAllLimited(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// maxResponseBytes 限制单次上游响应体的读取上限，防御异常的超大响应。
const maxResponseBytes = 10 << 20

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}

func (c *Client) logKeyFailure(endpoint string, status int, err error) {
	if c.logger == nil {
		return
	}
	fields := logrus.Fields{
		"action":   "brave_key_rotate",
		"endpoint": endpoint,
	}
	if status != 0 {
		fields["status"] = status
	}
	if err != nil {
		c.logger.WithFields(fields).Warn(err.Error())
		return
	}
	c.logger.WithFields(fields).Warn("上游拒绝当前 key，尝试下一个")
}
