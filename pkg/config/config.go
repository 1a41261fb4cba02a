// Package config 提供svc-hub的配置加载和日志初始化
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 定义整个应用的配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Health   HealthConfig   `mapstructure:"health"`
	Relay    RelayConfig    `mapstructure:"relay"`
	DNS      DNSConfig      `mapstructure:"dns"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	Port          int    `mapstructure:"port"`
	RateLimit     int    `mapstructure:"rate_limit"` // 每秒请求数上限，0表示不限流
}

// RegistryConfig 注册表配置
type RegistryConfig struct {
	Backend    string `mapstructure:"backend"`    // "memory" 或 "etcd"
	Partitions int    `mapstructure:"partitions"` // 按服务名哈希的分片数
}

// EtcdConfig etcd配置
type EtcdConfig struct {
	Endpoints      []string      `mapstructure:"endpoints"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
}

// HealthConfig 健康探测配置
type HealthConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"` // 单次探测的HTTP超时
	ProbePath    string        `mapstructure:"probe_path"`    // 探测路径，拼接在服务URL后
}

// RelayConfig RPC转发配置
type RelayConfig struct {
	Timeout time.Duration `mapstructure:"timeout"` // 单次转发调用的HTTP超时
}

// DNSConfig DNS服务配置
type DNSConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	ListenAddress string   `mapstructure:"listen_address"`
	Port          int      `mapstructure:"port"`
	Protocol      string   `mapstructure:"protocol"` // "udp", "tcp", 或 "both"
	Domain        string   `mapstructure:"domain"`   // 本地解析域，如 svc.local
	TTL           int      `mapstructure:"ttl"`      // 应答记录TTL(秒)
	Upstream      []string `mapstructure:"upstream"` // 非本地域的上游DNS
	CacheTTL      int      `mapstructure:"cache_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig 从文件和环境变量加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果指定了配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 设置配置文件名和路径
		v.SetConfigName("config")         // 配置文件名（无扩展名）
		v.AddConfigPath(".")              // 当前目录
		v.AddConfigPath("./configs")      // configs目录
		v.AddConfigPath("$HOME/.svc-hub") // 用户目录
		v.AddConfigPath("/etc/svc-hub")   // 系统目录
	}

	// 配置文件格式
	v.SetConfigType("yaml")

	// 尝试从配置文件加载
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，仅使用默认值和环境变量；其他错误则返回
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件错误: %w", err)
		}
	}

	// 绑定环境变量
	v.SetEnvPrefix("SVC_HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 从环境变量覆盖
	bindEnvVariables(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置错误: %w", err)
	}

	return &config, nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// HTTP服务默认配置
	v.SetDefault("server.listen_address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 0)

	// 注册表默认配置
	v.SetDefault("registry.backend", "memory")
	v.SetDefault("registry.partitions", 16)

	// etcd默认配置
	v.SetDefault("etcd.endpoints", []string{"localhost:2379"})
	v.SetDefault("etcd.dial_timeout", "5s")
	v.SetDefault("etcd.request_timeout", "10s")
	v.SetDefault("etcd.username", "")
	v.SetDefault("etcd.password", "")

	// 健康探测默认配置
	v.SetDefault("health.probe_timeout", "5s")
	v.SetDefault("health.probe_path", "/health")

	// RPC转发默认配置
	v.SetDefault("relay.timeout", "30s")

	// DNS服务默认配置
	v.SetDefault("dns.enabled", false)
	v.SetDefault("dns.listen_address", "0.0.0.0")
	v.SetDefault("dns.port", 53)
	v.SetDefault("dns.protocol", "both")
	v.SetDefault("dns.domain", "svc.local")
	v.SetDefault("dns.ttl", 30)
	v.SetDefault("dns.upstream", []string{"8.8.8.8:53", "8.8.4.4:53"})
	v.SetDefault("dns.cache_ttl", 60)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
}

// bindEnvVariables 绑定特定的环境变量
func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("etcd.endpoints", "SVC_HUB_ETCD_ENDPOINTS")
	v.BindEnv("server.port", "SVC_HUB_SERVER_PORT")
	v.BindEnv("registry.backend", "SVC_HUB_REGISTRY_BACKEND")
	v.BindEnv("dns.port", "SVC_HUB_DNS_PORT")
}
