package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// viperLoader Loader 的 Viper 实现（非导出）
type viperLoader struct {
	v    *viper.Viper
	opts *Options

	mu        sync.Mutex
	callbacks []func()
}

func newViperLoader(opts *Options) *viperLoader {
	return &viperLoader{v: viper.New(), opts: opts}
}

func (l *viperLoader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.opts.Name)
	l.v.SetConfigType(l.opts.FileType)
	for _, path := range l.opts.Paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高，嵌套 key 用下划线表达：
	// GATEWAY_STORE_DRIVER -> store.driver
	l.v.SetEnvPrefix(l.opts.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	// .env 在配置文件之前加载，已存在的进程环境变量不被覆盖
	l.loadDotEnv()

	if err := l.v.ReadInConfig(); err != nil {
		// 配置文件可选，全部来自环境变量与默认值也是合法部署
		var notFound viper.ConfigFileNotFoundError
		if !xerrors.As(err, &notFound) {
			return xerrors.Wrapf(err, "config: read %s", l.opts.Name)
		}
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.mu.Lock()
		callbacks := make([]func(), len(l.callbacks))
		copy(callbacks, l.callbacks)
		l.mu.Unlock()
		for _, fn := range callbacks {
			fn()
		}
	})
	l.v.WatchConfig()
	return nil
}

func (l *viperLoader) loadDotEnv() {
	_ = godotenv.Load()
	for _, path := range l.opts.Paths {
		_ = godotenv.Load(filepath.Join(path, ".env"))
	}
}

func (l *viperLoader) Get(key string) any {
	return l.v.Get(key)
}

func (l *viperLoader) Unmarshal(v any) error {
	if err := l.v.Unmarshal(v); err != nil {
		return xerrors.Wrap(err, "config: unmarshal")
	}
	return nil
}

func (l *viperLoader) UnmarshalKey(key string, v any) error {
	if err := l.v.UnmarshalKey(key, v); err != nil {
		return xerrors.Wrapf(err, "config: unmarshal key %s", key)
	}
	return nil
}

func (l *viperLoader) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, fn)
}
