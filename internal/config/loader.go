package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvAPIKeys 与原部署保持一致：逗号分隔的 Brave API key 列表。
const EnvAPIKeys = "BRAVE_SEARCH_API_KEYS"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// 环境变量 BRAVE_SEARCH_API_KEYS 中的 key 会追加到配置声明的 key 之后。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyUpstreamDefaults(&cfg.Upstream)
	cfg.Upstream.APIKeys = mergeEnvAPIKeys(cfg.Upstream.APIKeys, os.Getenv(EnvAPIKeys))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5001)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheCapacity", 20)
	v.SetDefault("CORSOrigins", []string{"*"})
	v.SetDefault("Upstream.DefaultSafe", "strict")
	v.SetDefault("Upstream.Timeout", "10s")
	v.SetDefault("Upstream.UserAgent", "nilch/1.0")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5001
	}
	if len(g.CORSOrigins) == 0 {
		g.CORSOrigins = []string{"*"}
	}
}

func applyUpstreamDefaults(u *UpstreamConfig) {
	if u.DefaultSafe == "" {
		u.DefaultSafe = "strict"
	} else {
		u.DefaultSafe = strings.ToLower(strings.TrimSpace(u.DefaultSafe))
	}
	if u.Timeout.DurationValue() == 0 {
		u.Timeout = Duration(10 * time.Second)
	}
	if u.UserAgent == "" {
		u.UserAgent = "nilch/1.0"
	}
}

// mergeEnvAPIKeys 解析逗号分隔的环境变量 key，去掉空白项后追加到配置列表。
func mergeEnvAPIKeys(configured []string, raw string) []string {
	keys := make([]string, 0, len(configured))
	seen := map[string]struct{}{}
	appendKey := func(key string) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	for _, key := range configured {
		appendKey(key)
	}
	for _, key := range strings.Split(raw, ",") {
		appendKey(key)
	}
	return keys
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
