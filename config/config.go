// Package config 提供网关的统一配置加载能力，基于 Viper 实现。
//
// 配置来源与优先级（高到低）：环境变量（前缀 GATEWAY_）、.env 文件、
// YAML 配置文件、代码内默认值。配置文件变化时自动重载并通知注册的
// 回调。
//
// ## 基本使用
//
//	loader, _ := config.New(&config.Options{Paths: []string{"./config"}})
//	if err := loader.Load(ctx); err != nil {
//	    return err
//	}
//
//	cfg, err := config.LoadApp(loader)
//	if err != nil {
//	    return err
//	}
package config

import (
	"context"
	"strings"
)

// Options 加载器选项
type Options struct {
	// Name 配置文件名（不含扩展名，默认 "gateway"）
	Name string

	// Paths 配置文件搜索路径（默认 [".", "./config"]）
	Paths []string

	// FileType 配置文件类型（默认 "yaml"）
	FileType string

	// EnvPrefix 环境变量前缀（默认 "GATEWAY"）
	EnvPrefix string
}

func (o *Options) setDefaults() {
	if o.Name == "" {
		o.Name = "gateway"
	}
	if o.Paths == nil {
		o.Paths = []string{".", "./config"}
	}
	if o.FileType == "" {
		o.FileType = "yaml"
	}
	if o.EnvPrefix == "" {
		o.EnvPrefix = "GATEWAY"
	}
	o.EnvPrefix = strings.ToUpper(o.EnvPrefix)
}

// Loader 配置加载器接口
type Loader interface {
	// Load 从所有来源加载配置并启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值，未设置时返回 nil
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// OnChange 注册配置文件变化回调，Load 之前注册的回调同样生效。
	OnChange(fn func())
}

// New 创建配置加载器，nil 选项使用默认值。
func New(opts *Options) (Loader, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts.setDefaults()
	return newViperLoader(opts), nil
}
