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

// 常驻进程：后台轮询各站点首页，前台输出新发现的文章，Ctrl+C 退出
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

	log.Printf("polling %d sources ...", len(cfg.Sources))
	if err := a.Run(ctx); err != nil {
		log.Printf("run exit: %v", err)
	}
	log.Println("Exiting...")
}
