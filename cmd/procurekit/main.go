// Command procurekit 提供商品检索服务与命令行工具。
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
