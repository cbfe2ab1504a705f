package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 读取仪表盘进程的pid文件并发送SIGHUP，触发数据集重新加载
func main() {
	pidFile := flag.String("pid", "siamik.pid", "仪表盘进程的pid文件")
	flag.Parse()

	data, err := os.ReadFile(*pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatal("Invalid pid file:", err)
	}

	// 向仪表盘进程发送 SIGHUP
	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("SIGHUP sent to %d", pid)
}
