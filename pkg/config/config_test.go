package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// 从默认位置加载配置
	config, err := LoadConfig("")
	require.NoError(t, err, "无法加载默认配置")
	require.NotNil(t, config, "配置不应为nil")

	// 验证默认值
	assert.Equal(t, 8080, config.Server.Port, "HTTP端口应为8080")
	assert.Equal(t, "memory", config.Registry.Backend, "默认存储后端应为memory")
	assert.Equal(t, 16, config.Registry.Partitions, "默认分片数应为16")
	assert.Equal(t, []string{"localhost:2379"}, config.Etcd.Endpoints, "etcd端点应为默认值")
	assert.Equal(t, 5*time.Second, config.Etcd.DialTimeout, "etcd连接超时应为5秒")
	assert.Equal(t, 5*time.Second, config.Health.ProbeTimeout, "健康探测超时应为5秒")
	assert.Equal(t, "/health", config.Health.ProbePath, "健康探测路径应为/health")
	assert.Equal(t, 30*time.Second, config.Relay.Timeout, "RPC转发超时应为30秒")
	assert.Equal(t, 53, config.DNS.Port, "DNS端口应为53")
	assert.Equal(t, "both", config.DNS.Protocol, "DNS协议应为both")
	assert.Equal(t, "svc.local", config.DNS.Domain, "本地解析域应为svc.local")
	assert.False(t, config.DNS.Enabled, "DNS服务默认应关闭")
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	// 设置环境变量
	os.Setenv("SVC_HUB_SERVER_PORT", "9090")
	os.Setenv("SVC_HUB_REGISTRY_BACKEND", "etcd")
	defer func() {
		os.Unsetenv("SVC_HUB_SERVER_PORT")
		os.Unsetenv("SVC_HUB_REGISTRY_BACKEND")
	}()

	// 加载配置
	config, err := LoadConfig("")
	require.NoError(t, err, "无法加载配置")
	require.NotNil(t, config, "配置不应为nil")

	// 验证环境变量覆盖
	assert.Equal(t, 9090, config.Server.Port, "环境变量应正确覆盖HTTP端口")
	assert.Equal(t, "etcd", config.Registry.Backend, "环境变量应正确覆盖存储后端")

	// 确认其他值不受影响
	assert.Equal(t, 53, config.DNS.Port, "DNS端口不应被环境变量影响")
}

func TestLoadConfigWithMissingFile(t *testing.T) {
	// 尝试从不存在的文件加载配置
	config, err := LoadConfig("non_existent_file.yaml")

	// 应该返回错误
	assert.Error(t, err, "从不存在的文件加载配置应该失败")

	// 不应该返回配置对象
	assert.Nil(t, config, "加载不存在的配置文件应该返回nil配置")
}
