// Package store 定义服务注册表的持久化接口
// 中枢通过该接口读写服务记录，不关心底层是内存实现还是etcd
package store

import (
	"context"

	"github.com/hewenyu/svc-hub/pkg/model"
)

// RegistryStore 定义服务记录存储接口
// 所有实现必须保持一致的缺失语义：Get对不存在的键返回(nil, nil)，
// Delete对不存在的键静默成功，error只表示传输或编解码层面的故障
type RegistryStore interface {
	// Put 写入或整体覆盖一条服务记录
	Put(ctx context.Context, name string, record *model.ServiceRecord) error

	// Get 读取指定名称的服务记录，键不存在时返回(nil, nil)
	Get(ctx context.Context, name string) (*model.ServiceRecord, error)

	// Delete 删除指定名称的服务记录，键不存在时不报错
	Delete(ctx context.Context, name string) error

	// ListByPrefix 按名称前缀列出服务记录，结果按名称升序排列
	// 前缀为空串时返回全部记录，没有匹配时返回空切片而不是错误
	ListByPrefix(ctx context.Context, prefix string) ([]model.Entry, error)

	// Close 释放存储持有的底层连接
	Close() error
}
