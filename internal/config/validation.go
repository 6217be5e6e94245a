package config

import (
	"errors"
	"strings"
)

var supportedSafeModes = map[string]struct{}{
	"strict":   {},
	"moderate": {},
	"off":      {},
}

const supportedSafeModeList = "strict|moderate|off"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
// CacheCapacity 为负视为配置错误（启动期快速失败）；为 0 表示禁用缓存。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.CacheCapacity < 0 {
		return newFieldError("Global.CacheCapacity", "不能为负数")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}
	for _, origin := range g.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			return newFieldError("Global.CORSOrigins", "不允许空白项")
		}
	}

	u := c.Upstream
	if u.Timeout.DurationValue() <= 0 {
		return newFieldError("Upstream.Timeout", "必须大于 0")
	}
	normalizedSafe := strings.ToLower(strings.TrimSpace(u.DefaultSafe))
	if _, ok := supportedSafeModes[normalizedSafe]; !ok {
		return newFieldError("Upstream.DefaultSafe", "仅支持 "+supportedSafeModeList)
	}
	c.Upstream.DefaultSafe = normalizedSafe

	for i, key := range u.APIKeys {
		if strings.TrimSpace(key) == "" {
			return newFieldError(upstreamField(i, "APIKeys"), "不允许空白 key")
		}
	}

	return nil
}

// IsSupportedSafeMode 判断请求层传入的 safe 参数是否合法。
func IsSupportedSafeMode(mode string) bool {
	_, ok := supportedSafeModes[strings.ToLower(strings.TrimSpace(mode))]
	return ok
}
