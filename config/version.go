package config

import "fmt"

var (
	Version    string = "dev"
	CommitHash string = ""
)

// IsProduction 生产构建：Version 为 "release" 且带有 CommitHash
func IsProduction() bool {
	return Version == "release" && CommitHash != ""
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}

// BuildInfo 返回形如 "photo-relay dev (abc1234)" 的版本描述
func BuildInfo() string {
	commit := CommitHash
	if commit == "" {
		commit = "n/a"
	}
	return fmt.Sprintf("photo-relay %s (%s)", Version, commit)
}
