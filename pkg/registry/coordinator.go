// Package registry 实现服务注册中枢的核心协调逻辑
// 注册表按服务名哈希分成若干分片，同名服务的读写总是落在同一分片上串行执行
package registry

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hewenyu/svc-hub/pkg/config"
	"github.com/hewenyu/svc-hub/pkg/model"
	"github.com/hewenyu/svc-hub/pkg/store"
)

// 注册中枢对外暴露的错误
var (
	// ErrServiceNotFound 表示请求的服务未注册
	ErrServiceNotFound = errors.New("服务不存在")
	// ErrServiceUnhealthy 表示目标服务当前处于不健康状态
	ErrServiceUnhealthy = errors.New("服务处于不健康状态")
	// ErrRelayFailed 表示对下游服务的RPC转发没有完成
	ErrRelayFailed = errors.New("RPC转发失败")
)

// defaultPartitions 默认的注册表分片数
const defaultPartitions = 16

// Registry 定义注册中枢的核心操作
type Registry interface {
	// Register 注册一个服务，同名服务会被整体覆盖
	Register(ctx context.Context, name, url string, metadata map[string]any) (*model.ServiceRecord, error)

	// Unregister 注销服务，服务不存在时同样视为成功
	Unregister(ctx context.Context, name string) error

	// Discover 查询单个服务的记录
	Discover(ctx context.Context, name string) (*model.ServiceRecord, error)

	// List 按名称前缀列出服务，前缀为空时返回全部
	List(ctx context.Context, prefix string) ([]model.Entry, error)

	// HealthCheck 对服务发起一次健康探测并把结果写回注册表
	HealthCheck(ctx context.Context, name string) (*model.ProbeResult, error)

	// Call 把一次JSON-RPC调用转发给指定的服务
	Call(ctx context.Context, name, method string, params any) (*RelayResponse, error)
}

// coordinator 实现 Registry 接口
type coordinator struct {
	store  store.RegistryStore
	prober *HealthProber
	relay  *RPCRelay
	locks  []sync.Mutex
	logger config.Logger
}

// NewCoordinator 创建注册中枢，partitions小于等于0时使用默认分片数
func NewCoordinator(st store.RegistryStore, prober *HealthProber, relay *RPCRelay, partitions int, logger config.Logger) Registry {
	if partitions <= 0 {
		partitions = defaultPartitions
	}

	return &coordinator{
		store:  st,
		prober: prober,
		relay:  relay,
		locks:  make([]sync.Mutex, partitions),
		logger: logger,
	}
}

// partitionFor 计算服务名所属的分片锁
// 同名服务总是映射到同一把锁，保证同名操作串行执行
func (c *coordinator) partitionFor(name string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(name))
	return &c.locks[h.Sum32()%uint32(len(c.locks))]
}

// Register 注册一个服务
// 同名记录整体替换，元数据不做合并，健康状态重置为true
func (c *coordinator) Register(ctx context.Context, name, url string, metadata map[string]any) (*model.ServiceRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("服务名称不能为空")
	}
	if url == "" {
		return nil, fmt.Errorf("服务地址不能为空")
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	record := &model.ServiceRecord{
		Name:         name,
		URL:          url,
		Metadata:     metadata,
		RegisteredAt: time.Now().UTC(),
		Healthy:      true,
	}

	lock := c.partitionFor(name)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.Put(ctx, name, record); err != nil {
		return nil, fmt.Errorf("注册服务失败: %w", err)
	}

	c.logger.Info("服务注册成功", zap.String("name", name), zap.String("url", url))
	return record, nil
}

// Unregister 注销服务
// 删除是幂等的，服务不存在时同样返回成功
func (c *coordinator) Unregister(ctx context.Context, name string) error {
	lock := c.partitionFor(name)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("注销服务失败: %w", err)
	}

	c.logger.Info("服务注销成功", zap.String("name", name))
	return nil
}

// Discover 查询单个服务的记录
// 不健康的服务同样会被返回，由调用方根据healthy字段自行决策
func (c *coordinator) Discover(ctx context.Context, name string) (*model.ServiceRecord, error) {
	lock := c.partitionFor(name)
	lock.Lock()
	defer lock.Unlock()

	record, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("查询服务失败: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	return record, nil
}

// List 按名称前缀列出服务
// 列表是跨分片操作，不取分片锁，只保证单条记录自身的一致性
func (c *coordinator) List(ctx context.Context, prefix string) ([]model.Entry, error) {
	entries, err := c.store.ListByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("列出服务失败: %w", err)
	}

	return entries, nil
}

// HealthCheck 对服务发起一次健康探测并把结果写回注册表
// 分片锁在整个探测期间保持持有，同名操作会排在探测完成之后；
// 探测的网络失败不上抛，吸收为healthy=false后照常返回探测结果
func (c *coordinator) HealthCheck(ctx context.Context, name string) (*model.ProbeResult, error) {
	lock := c.partitionFor(name)
	lock.Lock()
	defer lock.Unlock()

	record, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("查询服务失败: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	probeErr := c.prober.Probe(ctx, record.URL)
	healthy := probeErr == nil

	// 健康状态和探测时间在同一次写入中落盘
	now := time.Now().UTC()
	record.Healthy = healthy
	record.LastHealthCheck = &now
	if err := c.store.Put(ctx, name, record); err != nil {
		return nil, fmt.Errorf("写回探测结果失败: %w", err)
	}

	result := &model.ProbeResult{
		Name:      name,
		Healthy:   healthy,
		CheckedAt: now,
	}
	if probeErr != nil {
		result.Error = probeErr.Error()
		c.logger.Warn("健康探测未通过", zap.String("name", name), zap.Error(probeErr))
	} else {
		c.logger.Debug("健康探测通过", zap.String("name", name))
	}

	return result, nil
}

// Call 把一次JSON-RPC调用转发给指定的服务
// 转发前只检查注册表里的健康标记，不做即时探测；
// 下游的失败原样向调用方传播，不会影响注册表中的记录
func (c *coordinator) Call(ctx context.Context, name, method string, params any) (*RelayResponse, error) {
	lock := c.partitionFor(name)
	lock.Lock()
	defer lock.Unlock()

	record, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("查询服务失败: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	if !record.Healthy {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnhealthy, name)
	}

	resp, err := c.relay.Call(ctx, record.URL, method, params)
	if err != nil {
		c.logger.Error("RPC转发失败",
			zap.String("name", name),
			zap.String("method", method),
			zap.Error(err))
		return nil, fmt.Errorf("%w [%s.%s]: %v", ErrRelayFailed, name, method, err)
	}

	c.logger.Debug("RPC转发完成",
		zap.String("name", name),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode))

	return resp, nil
}
