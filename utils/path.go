package utils

import (
	"os"
	"path/filepath"
)

// GetExecutableDir 获取可执行文件所在目录
func GetExecutableDir() string {
	exePath, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exePath)
}

// GetDataDir 获取数据目录路径（可执行文件所在目录下的 data 文件夹）
// 未配置数据库文件或本地存储路径时使用
func GetDataDir() string {
	return filepath.Join(GetExecutableDir(), "data")
}
