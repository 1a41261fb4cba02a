package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hewenyu/svc-hub/pkg/api"
	"github.com/hewenyu/svc-hub/pkg/config"
	"github.com/hewenyu/svc-hub/pkg/dns"
	"github.com/hewenyu/svc-hub/pkg/registry"
	"github.com/hewenyu/svc-hub/pkg/store"
	"github.com/hewenyu/svc-hub/pkg/store/etcd"
	"github.com/hewenyu/svc-hub/pkg/store/memory"
)

const version = "0.1.0"

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "", "配置文件路径")
}

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger, err := config.NewLogger(cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	logger.Info("svc-hub启动中...",
		zap.String("version", version),
		zap.String("backend", cfg.Registry.Backend),
		zap.Int("api_port", cfg.Server.Port),
		zap.Bool("dns_enabled", cfg.DNS.Enabled),
	)

	// 创建后台任务上下文，用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 按配置选择存储后端
	var (
		st         store.RegistryStore
		etcdClient *etcd.Client
	)
	switch cfg.Registry.Backend {
	case "etcd":
		etcdClient, err = etcd.NewClient(&cfg.Etcd)
		if err != nil {
			logger.Error("连接etcd失败", zap.Error(err))
			os.Exit(1)
		}
		st = etcd.NewEtcdStore(etcdClient)
		logger.Info("使用etcd存储后端", zap.Strings("endpoints", cfg.Etcd.Endpoints))
	case "memory":
		st = memory.NewMemoryStore()
		logger.Info("使用内存存储后端，注册数据不会持久化")
	default:
		logger.Error("不支持的存储后端", zap.String("backend", cfg.Registry.Backend))
		os.Exit(1)
	}
	defer st.Close()

	// 组装注册中枢
	prober := registry.NewHealthProber(cfg.Health.ProbeTimeout, cfg.Health.ProbePath)
	relay := registry.NewRPCRelay(cfg.Relay.Timeout)
	reg := registry.NewCoordinator(st, prober, relay, cfg.Registry.Partitions, logger)

	// 启动HTTP API服务
	apiServer := api.NewServer(reg, cfg, logger)
	if err := apiServer.Start(); err != nil {
		logger.Error("启动HTTP API服务失败", zap.Error(err))
		os.Exit(1)
	}

	// 按配置启动DNS服务
	var dnsServer *dns.Server
	if cfg.DNS.Enabled {
		dnsServer, err = dns.NewServer(reg, cfg, logger)
		if err != nil {
			logger.Error("创建DNS服务失败", zap.Error(err))
			os.Exit(1)
		}
		if err := dnsServer.Start(ctx); err != nil {
			logger.Error("启动DNS服务失败", zap.Error(err))
			os.Exit(1)
		}
	}

	// etcd后端时监听注册表变更，及时作废DNS缓存
	if etcdClient != nil {
		watcher := etcd.NewWatcher(etcdClient, logger)
		err := watcher.Start(ctx, func(event etcd.WatchEvent) {
			logger.Info("注册表变更",
				zap.String("event", event.EventType),
				zap.String("service", event.Name))
			if dnsServer != nil {
				dnsServer.InvalidateService(event.Name)
			}
		})
		if err != nil {
			logger.Error("启动注册表监听失败", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("svc-hub启动完成")

	// 等待终止信号
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signalChan
	logger.Info("接收到关闭信号，正在优雅关闭...", zap.String("signal", sig.String()))

	// 停止后台任务
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("关闭HTTP API服务失败", zap.Error(err))
		}
	}()

	if dnsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dnsServer.Stop(); err != nil {
				logger.Warn("关闭DNS服务失败", zap.Error(err))
			}
		}()
	}

	wg.Wait()
	logger.Info("svc-hub已关闭")
}
