package clog

import "fmt"

// Config 日志配置
type Config struct {
	// Level 日志级别："debug" | "info" | "warn" | "error"（默认 "info"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format 输出格式："console" | "json"（默认 "console"）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output 输出目标："stdout" | "stderr"（默认 "stdout"）
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// DefaultConfig 返回默认配置（info / console / stdout）
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	}
}

// NewDevConfig 返回适合本地开发的配置（debug 级别，console 格式）
//
// namespace 作为根命名空间，在 New 时通过选项生效更灵活，
// 这里仅保留签名对齐的便捷入口。
func NewDevConfig() *Config {
	return &Config{
		Level:  "debug",
		Format: "console",
		Output: "stdout",
	}
}

func (c *Config) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

func (c *Config) validate() error {
	c.setDefaults()
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "console", "json":
	default:
		return fmt.Errorf("clog: unsupported format: %s", c.Format)
	}
	switch c.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("clog: unsupported output: %s", c.Output)
	}
	return nil
}
