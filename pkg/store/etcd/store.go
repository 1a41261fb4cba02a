package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hewenyu/svc-hub/pkg/model"
)

// registryPrefix 服务记录在etcd中的键前缀
// 完整键形如 /svc-hub/registry/<服务名>，对外暴露的列表结果会去掉该前缀
const registryPrefix = "/svc-hub/registry/"

// EtcdStore 实现基于etcd的注册表存储
// 记录以JSON形式存储，不挂租约：记录的生命周期由注销操作决定，
// 健康探测只改写healthy字段，从不让记录自动过期
type EtcdStore struct {
	client *Client
}

// NewEtcdStore 创建一个新的基于etcd的注册表存储
func NewEtcdStore(client *Client) *EtcdStore {
	return &EtcdStore{
		client: client,
	}
}

// recordKey 获取服务记录的存储键
func recordKey(name string) string {
	return registryPrefix + name
}

// Put 写入或整体覆盖一条服务记录
func (s *EtcdStore) Put(ctx context.Context, name string, record *model.ServiceRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化服务记录失败: %w", err)
	}

	if err := s.client.Put(ctx, recordKey(name), data); err != nil {
		return fmt.Errorf("存储服务记录失败: %w", err)
	}

	return nil
}

// Get 读取指定名称的服务记录，键不存在时返回(nil, nil)
func (s *EtcdStore) Get(ctx context.Context, name string) (*model.ServiceRecord, error) {
	data, err := s.client.Get(ctx, recordKey(name))
	if err != nil {
		return nil, fmt.Errorf("获取服务记录失败: %w", err)
	}

	if data == nil {
		return nil, nil // 服务不存在
	}

	var record model.ServiceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("解析服务记录失败: %w", err)
	}

	return &record, nil
}

// Delete 删除指定名称的服务记录，键不存在时不报错
func (s *EtcdStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Delete(ctx, recordKey(name)); err != nil {
		return fmt.Errorf("删除服务记录失败: %w", err)
	}

	return nil
}

// ListByPrefix 按名称前缀列出服务记录，结果按名称升序排列
func (s *EtcdStore) ListByPrefix(ctx context.Context, prefix string) ([]model.Entry, error) {
	data, err := s.client.GetWithPrefix(ctx, registryPrefix+prefix)
	if err != nil {
		return nil, fmt.Errorf("获取服务记录列表失败: %w", err)
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]model.Entry, 0, len(keys))
	for _, key := range keys {
		var record model.ServiceRecord
		if err := json.Unmarshal(data[key], &record); err != nil {
			return nil, fmt.Errorf("解析服务记录失败 [%s]: %w", key, err)
		}

		// 对外暴露服务名而不是etcd内部键
		entries = append(entries, model.Entry{
			Name:   strings.TrimPrefix(key, registryPrefix),
			Record: &record,
		})
	}

	return entries, nil
}

// Close 关闭底层etcd连接
func (s *EtcdStore) Close() error {
	return s.client.Close()
}
