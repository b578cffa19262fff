package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/NewsWatch/internal/app"
	"github.com/LJTian/NewsWatch/internal/config"
)

// 一个仅执行一轮采集的命令行入口：适合手动检查各站点提取规则是否仍然有效
func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	a, err := app.New(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("init app failed: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 只执行一轮采集任务后退出
	n := a.RunOnce(ctx)
	log.Printf("collect done, delivered=%d", n)
}
