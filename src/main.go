package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"SiamikDashboard/src/api"
	"SiamikDashboard/src/config"
	"SiamikDashboard/src/datasource/email"
	"SiamikDashboard/src/datasource/file"
	"SiamikDashboard/src/processor"
	"SiamikDashboard/src/report"
	"SiamikDashboard/src/storage"

	"github.com/robfig/cron"
)

func main() {
	jsonFolder := flag.String("config", "./config", "配置文件目录")
	reportMode := flag.Bool("report", false, "输出终端报表后退出")
	faculty := flag.String("faculty", "", "报表模式下的院系过滤")
	prodi := flag.String("prodi", "", "报表模式下的专业过滤")
	flag.Parse()

	cfg, dcfg, err := config.LoadConfig(*jsonFolder, "config.json", "dataconfig.json")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logName := cfg.LogName
	if *reportMode {
		logName = ""
	}
	logger, err := storage.NewLogger(logName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	cache := file.NewDatasetCache(file.NewLoader(cfg.Data.SheetName))
	proc := processor.NewDataProcessor(cfg, dcfg, cache, logger)
	snapshot := proc.Rebuild()

	if *reportMode {
		report.Render(os.Stdout, snapshot, snapshot.Selection(*faculty, *prodi))
		logger.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Data.Watch {
		startFileMonitor(ctx, proc, logger)
	}

	c, err := startCron(cfg, proc, logger)
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		logger.Close()
		os.Exit(1)
	}
	defer c.Stop()

	if err := writePidFile(cfg.PidFile); err != nil {
		logger.Warning("写入pid文件失败: " + err.Error())
	}
	defer os.Remove(cfg.PidFile)

	handler := api.NewHandler(proc, cfg, logger)
	server := api.NewServer(cfg.Server.Addr, api.NewRouter(handler, cfg.Server.AllowedOrigins))
	errCh := server.Start()
	logger.Info(fmt.Sprintf("SIAMIK Dashboard已启动(地址: %s)，按Ctrl+C退出", cfg.Server.Addr))

	waitForShutdown(cfg, proc, server, errCh, logger)
}

// startFileMonitor 监听两个数据文件，变更时失效缓存并重建快照
func startFileMonitor(ctx context.Context, proc *processor.DataProcessor, logger *storage.Logger) {
	monitor, err := file.NewFileMonitor(proc.Paths()...)
	if err != nil {
		logger.Warning("文件监控启动失败，仅依赖定时检查: " + err.Error())
		return
	}
	go func() {
		defer monitor.Close()
		if err := monitor.Watch(ctx, proc.OnFileChanged); err != nil {
			logger.Error("File monitoring error: " + err.Error())
		}
	}()
}

// startCron 注册数据过期检查、日志轮转以及可选的邮箱拉取任务
func startCron(cfg *config.Config, proc *processor.DataProcessor, logger *storage.Logger) (*cron.Cron, error) {
	c := cron.New()

	refreshSpec := fmt.Sprintf("@every %s", cfg.Data.RefreshInterval.Std())
	err := c.AddFunc(refreshSpec, func() {
		if proc.RefreshIfStale() {
			logger.Info("数据文件已更新，快照已重建")
		}
		if err := logger.CheckRotate(cfg); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	})
	if err != nil {
		return nil, err
	}

	if cfg.Email.Enabled {
		client := email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password, logger)
		handler := email.NewDatasetAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir,
			cfg.Data.SheetName, proc.Paths(), logger)
		ingester := email.NewIngester(client, handler, cfg.Email.TargetSubject, logger)

		mailSpec := fmt.Sprintf("@every %s", cfg.Email.CheckInterval.Std())
		err = c.AddFunc(mailSpec, func() {
			logger.Info(fmt.Sprintf("开始定时检查(间隔: %v)...", mailSpec))
			t1 := time.Now()
			saved, err := ingester.Run()
			if err != nil {
				logger.Error("检查处理邮件失败: " + err.Error())
				return
			}
			logger.Info(fmt.Sprintf("邮件检查完成，保存%d个附件，耗时%v", len(saved), time.Since(t1)))
		})
		if err != nil {
			return nil, err
		}
	}

	c.Start()
	return c, nil
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// waitForShutdown SIGHUP重新打开日志文件并重新加载数据，SIGINT/SIGTERM关闭服务
func waitForShutdown(cfg *config.Config, proc *processor.DataProcessor, server *api.Server, errCh <-chan error, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				logger.Error("HTTP服务异常退出: " + err.Error())
				logger.Close()
				return
			}
			errCh = nil
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				// 外部logrotate移走文件后，在原路径重新创建
				if cfg.LogName != "" {
					if err := logger.Reopen(cfg.LogName); err != nil {
						logger.Error("重新打开日志文件失败: " + err.Error())
					}
				}
				logger.Info("Received signal: SIGHUP, reloading datasets...")
				proc.Reload()
				continue
			}

			logger.Info("Received signal: " + sig.String() + ", shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("HTTP服务关闭失败: " + err.Error())
			}
			cancel()
			logger.Close()
			return
		}
	}
}
