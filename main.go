package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nilch/nilch-api/internal/brave"
	"github.com/nilch/nilch-api/internal/cache"
	"github.com/nilch/nilch-api/internal/config"
	"github.com/nilch/nilch-api/internal/infobox"
	"github.com/nilch/nilch-api/internal/logging"
	"github.com/nilch/nilch-api/internal/search"
	"github.com/nilch/nilch-api/internal/server"
	"github.com/nilch/nilch-api/internal/server/routes"
	"github.com/nilch/nilch-api/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_capacity"] = cfg.Global.CacheCapacity
		fields["key_mode"] = cfg.Upstream.KeyMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 内存缓存 → 上游客户端 → Fiber server”顺序，
	// 缓存实例全进程只创建一份并显式注入各层，不依赖任何全局单例。
	store, err := cache.NewStore(cfg.Global.CacheCapacity)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存失败: %v\n", err)
		return 1
	}

	httpClient := server.NewUpstreamClient(cfg)
	braveClient := brave.NewClient(httpClient, logger, brave.DefaultBaseURL, cfg.Upstream.APIKeys)
	boxResolver := infobox.NewResolver(infobox.Options{
		HTTPClient: httpClient,
		Logger:     logger,
		UserAgent:  cfg.Upstream.UserAgent,
	})
	searchResolver := search.NewResolver(store, braveClient, logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_capacity"] = cfg.Global.CacheCapacity
	fields["key_mode"] = cfg.Upstream.KeyMode()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, store, searchResolver, braveClient, boxResolver, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("nilch-api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 NILCH_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("NILCH_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(
	cfg *config.Config,
	store cache.Store,
	searchResolver *search.Resolver,
	braveClient *brave.Client,
	boxResolver *infobox.Resolver,
	logger *logrus.Logger,
) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:      logger,
		CORSOrigins: cfg.Global.CORSOrigins,
		ListenPort:  port,
	})
	if err != nil {
		return err
	}

	routes.RegisterAPIRoutes(app, &routes.API{
		Logger:      logger,
		Search:      searchResolver,
		Images:      braveClient,
		Infobox:     boxResolver,
		DefaultSafe: cfg.Upstream.DefaultSafe,
	})
	routes.RegisterDiagnosticsRoutes(app, store)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
