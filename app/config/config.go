package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Remote RemoteConfig `mapstructure:"remote"`
	Legacy LegacyConfig `mapstructure:"legacy"`
	Search SearchConfig `mapstructure:"search"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	JWT    JWTConfig    `mapstructure:"jwt"`
}

// RemoteConfig 远端历史记录/文件夹存储
type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PageSize       int    `mapstructure:"page_size"` // 分页加载历史记录时每页数量
	Token          string `mapstructure:"token"`     // Bearer 令牌，可为空
}

// LegacyConfig 旧版本地存储（仅本地保存的历史记录）
type LegacyConfig struct {
	Path        string `mapstructure:"path"`
	BlobKey     string `mapstructure:"blob_key"`
	DeclinedKey string `mapstructure:"declined_key"`
}

type SearchConfig struct {
	DebounceMS      int     `mapstructure:"debounce_ms"`
	Threshold       float64 `mapstructure:"threshold"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
}

type SyncConfig struct {
	RefreshSchedule string `mapstructure:"refresh_schedule"` // cron 表达式，为空则不定时刷新
	InitDelayMS     int    `mapstructure:"init_delay_ms"`
}

// ServerConfig 参考实现的远端存储服务
type ServerConfig struct {
	Port   string `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥，为空时远端存储不做认证
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// Timeout 远端请求超时时间
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Debounce 搜索防抖静默期
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

func (s SearchConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

func (s SyncConfig) InitDelay() time.Duration {
	return time.Duration(s.InitDelayMS) * time.Millisecond
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	config, err := Decode()
	if err != nil {
		log.Fatalf("%v", err)
	}
	return config
}

// Decode 将当前 viper 中的配置解码并校验，不读取配置文件
func Decode() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解码配置: %w", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// Default 返回全部为默认值的配置
func Default() *Config {
	v := viper.New()
	applyDefaults(v)

	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetEnvPrefix("NOTESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	applyDefaults(viper.GetViper())
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "http://127.0.0.1:8483/api")
	v.SetDefault("remote.timeout_seconds", 10)
	v.SetDefault("remote.page_size", 100)
	v.SetDefault("remote.token", "")

	v.SetDefault("legacy.path", "data/legacy")
	v.SetDefault("legacy.blob_key", "task-storage")
	v.SetDefault("legacy.declined_key", "migration-skipped")

	v.SetDefault("search.debounce_ms", 300)
	v.SetDefault("search.threshold", 0.4)
	v.SetDefault("search.cache_ttl_seconds", 60)

	v.SetDefault("sync.refresh_schedule", "")
	v.SetDefault("sync.init_delay_ms", 100)

	v.SetDefault("server.port", "8483")
	v.SetDefault("server.db_path", "data/note-sync.db")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	// JWT默认配置
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_time", 24*30)
	v.SetDefault("jwt.issuer", "note-sync")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Remote.BaseURL == "" {
		return fmt.Errorf("远端存储地址未设置")
	}
	if config.Remote.PageSize <= 0 {
		return fmt.Errorf("分页大小必须大于 0: %d", config.Remote.PageSize)
	}
	if config.Search.Threshold < 0 || config.Search.Threshold > 1 {
		return fmt.Errorf("搜索阈值必须在 0 到 1 之间: %v", config.Search.Threshold)
	}
	if config.Search.DebounceMS < 0 {
		return fmt.Errorf("搜索防抖时间不能为负数")
	}
	if config.Legacy.BlobKey == "" || config.Legacy.DeclinedKey == "" {
		return fmt.Errorf("旧版存储键名未设置")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	return nil
}
