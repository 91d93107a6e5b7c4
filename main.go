package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"budgetbot/bot"
	"budgetbot/config"
	"budgetbot/database"
	"budgetbot/logger"
	"budgetbot/middleware"
	"budgetbot/router"
	"budgetbot/service"

	"go.uber.org/zap"
)

// @title 预算机器人 API
// @version 1.0
// @description 聊天预算机器人的网关事件接口与消费数据导出
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
	issueToken  string
	scopes      string
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
	flag.StringVar(&issueToken, "issue-token", "", "为指定网关签发访问令牌后退出")
	flag.StringVar(&scopes, "scopes", middleware.ScopeEvents, "令牌范围，逗号分隔: events, export, *")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Println("预算机器人 v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化 JWT
	middleware.InitJWT(cfg)

	if issueToken != "" {
		token, err := middleware.GenerateToken(issueToken, splitScopes(scopes), cfg.JWT.ExpireTime)
		if err != nil {
			log.Fatalf("签发令牌失败: %v", err)
		}
		fmt.Println(token)
		return
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		// 自动添加冒号前缀
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		log.Printf("命令行指定端口: %s", port)
	}

	// 打印配置信息
	config.PrintConfig()

	if err := logger.Init(cfg.Log.Development, logger.LogLevel(cfg.Log.Level)); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库
	if err := database.Init(cfg); err != nil {
		logger.Get().Fatal("数据库初始化失败", zap.Error(err))
	}
	store := database.NewStore(database.GetDB())

	gate := service.NewAuthGate(store, cfg.Bot.BootstrapAdminID)
	created, err := gate.EnsureBootstrapAdmin(context.Background())
	if err != nil {
		logger.Get().Fatal("引导管理员失败", zap.Error(err))
	}
	if created {
		logger.Get().Info("已创建引导管理员", zap.Int64("identity_id", gate.BootstrapID()))
	}

	botRouter := bot.NewRouter(gate, store, bot.Config{
		Location:        cfg.Bot.Location,
		HistoryPageSize: cfg.Bot.HistoryPageSize,
		Notifier:        service.NewEmailService(&cfg.Email),
	})

	// 设置路由
	r := router.SetupRouter(cfg, router.Deps{
		Dispatcher: botRouter,
		Expenses:   store,
	})

	// 启动服务器
	log.Printf("==========================================")
	log.Printf("  💰 预算机器人已启动")
	log.Printf("==========================================")
	log.Printf("  事件接口: http://localhost%s/api/v1/events", cfg.Server.Port)
	log.Printf("  Swagger:  http://localhost%s/swagger/index.html", cfg.Server.Port)
	log.Printf("  指标:     http://localhost%s/metrics", cfg.Server.Port)
	log.Printf("==========================================")

	if err := r.Run(cfg.Server.Port); err != nil {
		logger.Get().Fatal("服务器启动失败", zap.Error(err))
	}
}

func splitScopes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
