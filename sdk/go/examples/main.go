package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdk "github.com/hewenyu/svc-hub/sdk/go"
)

func main() {
	// 配置SDK客户端
	config := &sdk.Config{
		ServerAddr:     "localhost:8080",
		ServiceName:    "example-service",
		ServiceURL:     "http://127.0.0.1:8000",
		Metadata:       map[string]any{"version": "1.0.0"},
		HealthInterval: 30 * time.Second,
		Timeout:        5 * time.Second,
	}

	// 创建SDK客户端
	client, err := sdk.NewClient(config)
	if err != nil {
		log.Fatalf("创建SDK客户端失败: %v", err)
	}

	// 注册服务
	ctx := context.Background()
	if err := client.Register(ctx); err != nil {
		log.Fatalf("服务注册失败: %v", err)
	}
	log.Printf("服务注册成功: %s", config.ServiceName)

	// 读回注册记录
	info, err := client.Discover(ctx, config.ServiceName)
	if err != nil {
		log.Fatalf("查询服务失败: %v", err)
	}
	log.Printf("服务记录: url=%s healthy=%v", info.URL, info.Healthy)

	// 启动周期性自检
	client.StartHealthLoop()
	log.Printf("自检任务已启动，间隔: %s", config.HealthInterval)

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Println("服务已启动，按Ctrl+C终止...")
	<-quit

	// 优雅关闭
	log.Println("正在关闭服务...")
	if err := client.Close(ctx); err != nil {
		log.Printf("关闭SDK客户端失败: %v", err)
	}
	log.Println("服务已关闭")
}
