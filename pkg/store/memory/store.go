// Package memory 提供基于内存的注册表存储实现，主要用于测试和本地开发
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hewenyu/svc-hub/pkg/model"
)

// MemoryStore 是基于内存的注册表存储实现
// 读写都会拷贝记录，保证调用方拿到的对象与存储内部不共享，
// 行为上与etcd实现的序列化往返保持一致
type MemoryStore struct {
	records map[string]*model.ServiceRecord
	mutex   sync.RWMutex
}

// NewMemoryStore 创建新的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*model.ServiceRecord),
	}
}

// Put 写入或整体覆盖一条服务记录
func (m *MemoryStore) Put(ctx context.Context, name string, record *model.ServiceRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.records[name] = record.Clone()
	return nil
}

// Get 读取指定名称的服务记录，键不存在时返回(nil, nil)
func (m *MemoryStore) Get(ctx context.Context, name string) (*model.ServiceRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	record, exists := m.records[name]
	if !exists {
		return nil, nil
	}

	return record.Clone(), nil
}

// Delete 删除指定名称的服务记录，键不存在时不报错
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.records, name)
	return nil
}

// ListByPrefix 按名称前缀列出服务记录，结果按名称升序排列
func (m *MemoryStore) ListByPrefix(ctx context.Context, prefix string) ([]model.Entry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(m.records))
	for name := range m.records {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	entries := make([]model.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, model.Entry{
			Name:   name,
			Record: m.records[name].Clone(),
		})
	}

	return entries, nil
}

// Close 实现RegistryStore接口，内存存储没有需要释放的资源
func (m *MemoryStore) Close() error {
	return nil
}
