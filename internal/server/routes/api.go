package routes

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/nilch/nilch-api/internal/brave"
	"github.com/nilch/nilch-api/internal/config"
	"github.com/nilch/nilch-api/internal/infobox"
	"github.com/nilch/nilch-api/internal/logging"
	"github.com/nilch/nilch-api/internal/search"
	"github.com/nilch/nilch-api/internal/server"
)

// 旧版前端约定的字符串响应，必须按原样返回（含 infobox 缺失时的 "null"）。
const (
	legacyNoQuery   = "noquery"
	legacyNoResults = "noresults"
	legacyNullBox   = "null"
)

// SearchResolver 抽象查询仲裁层，测试中注入假实现。
type SearchResolver interface {
	Resolve(ctx context.Context, q search.Query) ([]json.RawMessage, error)
}

// ImageFetcher 抽象图片搜索，图片结果不经过缓存。
type ImageFetcher interface {
	FetchImages(ctx context.Context, query, safe string) ([]brave.ImageResult, error)
}

// InfoboxResolver 抽象即时答案查询；返回 nil 表示没有 infobox。
type InfoboxResolver interface {
	Lookup(ctx context.Context, webResults []json.RawMessage, query string) *infobox.Infobox
}

// API 汇总 /api 路由的全部依赖，由 main 在启动时一次性注入。
type API struct {
	Logger      *logrus.Logger
	Search      SearchResolver
	Images      ImageFetcher
	Infobox     InfoboxResolver
	DefaultSafe string
}

// RegisterAPIRoutes 注册 /api/search 与 /api/images。
func RegisterAPIRoutes(app *fiber.App, api *API) {
	if app == nil || api == nil {
		return
	}

	app.Get("/api/search", api.handleSearch)
	app.Get("/api/images", api.handleImages)
}

// handleSearch 处理搜索请求：归一化参数 → 仲裁缓存/回源 → 附加 infobox。
func (api *API) handleSearch(c fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return c.JSON(legacyNoQuery)
	}

	q := search.Query{
		Term:   term,
		Safe:   api.safeMode(c.Query("safe")),
		Videos: queryBool(c, "videos"),
		Page:   queryInt(c, "page"),
	}.Normalize(api.DefaultSafe)

	ctx := c.Context()
	results, err := api.Search.Resolve(ctx, q)
	if err != nil {
		api.logSearchFailure(c, q, err)
		return c.JSON(legacyNoResults)
	}
	if results == nil {
		results = []json.RawMessage{}
	}

	var box interface{} = legacyNullBox
	if !q.Videos && api.Infobox != nil {
		if found := api.Infobox.Lookup(ctx, results, q.Term); found != nil {
			box = found
		}
	}

	return c.JSON(fiber.Map{
		"infobox": box,
		"results": results,
	})
}

// handleImages 处理图片搜索：结果直接透传上游，不写缓存。
func (api *API) handleImages(c fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return c.JSON(legacyNoQuery)
	}

	safe := api.safeMode(c.Query("safe"))
	images, err := api.Images.FetchImages(c.Context(), term, safe)
	if err != nil {
		api.logImagesFailure(c, term, err)
		return c.JSON(legacyNoResults)
	}

	return c.JSON(images)
}

// safeMode 过滤非法的 safe 参数，回退到配置默认值。
func (api *API) safeMode(raw string) string {
	if raw == "" || !config.IsSupportedSafeMode(raw) {
		return api.DefaultSafe
	}
	return raw
}

func queryBool(c fiber.Ctx, name string) bool {
	value, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return false
	}
	return value
}

func queryInt(c fiber.Ctx, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}

func (api *API) logSearchFailure(c fiber.Ctx, q search.Query, err error) {
	if api.Logger == nil {
		return
	}
	fields := logging.SearchFields(q.Term, q.Safe, q.Videos, q.Page, false)
	fields["action"] = "search"
	fields["request_id"] = server.RequestID(c)
	api.Logger.WithFields(fields).Error(err.Error())
}

func (api *API) logImagesFailure(c fiber.Ctx, term string, err error) {
	if api.Logger == nil {
		return
	}
	api.Logger.WithFields(logrus.Fields{
		"action":     "images",
		"query":      term,
		"request_id": server.RequestID(c),
	}).Error(err.Error())
}
