package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// SearchFields 提供查询参数与命中状态字段，供搜索请求日志复用。
func SearchFields(query, safe string, videos bool, page int, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"query":     query,
		"safe":      safe,
		"videos":    videos,
		"page":      page,
		"cache_hit": cacheHit,
	}
}
