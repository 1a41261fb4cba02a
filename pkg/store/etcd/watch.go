package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/hewenyu/svc-hub/pkg/config"
	"github.com/hewenyu/svc-hub/pkg/model"
)

// 监听事件类型
const (
	EventTypeCreate = "create"
	EventTypeUpdate = "update"
	EventTypeDelete = "delete"
)

// WatchEvent 表示一次注册表变更事件
type WatchEvent struct {
	EventType string               // 事件类型: create/update/delete
	Name      string               // 发生变化的服务名
	Record    *model.ServiceRecord // 变化后的记录，删除事件时为变化前的记录
}

// WatchCallback 定义监听回调函数类型
type WatchCallback func(event WatchEvent)

// Watcher 监听etcd中注册表记录的变化
// DNS缓存等组件通过它在记录变更时做失效处理
type Watcher struct {
	client *Client
	logger config.Logger
}

// NewWatcher 创建注册表变更监听器
func NewWatcher(client *Client, logger config.Logger) *Watcher {
	return &Watcher{
		client: client,
		logger: logger,
	}
}

// Start 开始监听注册表变化，监听在后台协程中持续到ctx取消
func (w *Watcher) Start(ctx context.Context, callback WatchCallback) error {
	w.logger.Info("开始监听注册表变化", zap.String("prefix", registryPrefix))

	// 先获取当前revision，从下一个revision开始监听，避免漏掉启动间隙的变更
	resp, err := w.client.client.Get(ctx, registryPrefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		w.logger.Error("获取注册表当前revision失败", zap.Error(err))
		return fmt.Errorf("获取注册表当前revision失败: %w", err)
	}
	startRevision := resp.Header.Revision + 1

	watchChan := w.client.WatchWithPrefix(ctx, registryPrefix,
		clientv3.WithRev(startRevision), clientv3.WithPrevKV())

	go func() {
		for watchResp := range watchChan {
			if watchResp.Canceled {
				w.logger.Warn("注册表监听被取消，准备重新监听", zap.Error(watchResp.Err()))
				time.Sleep(1 * time.Second)
				watchChan = w.client.WatchWithPrefix(ctx, registryPrefix, clientv3.WithPrevKV())
				continue
			}

			for _, event := range watchResp.Events {
				watchEvent := w.parseEvent(event)
				callback(watchEvent)

				w.logger.Debug("检测到注册表变化",
					zap.String("type", watchEvent.EventType),
					zap.String("name", watchEvent.Name))
			}
		}
	}()

	return nil
}

// parseEvent 把etcd事件转换为注册表变更事件
func (w *Watcher) parseEvent(event *clientv3.Event) WatchEvent {
	name := strings.TrimPrefix(string(event.Kv.Key), registryPrefix)

	watchEvent := WatchEvent{Name: name}

	switch event.Type {
	case clientv3.EventTypePut:
		if event.IsCreate() {
			watchEvent.EventType = EventTypeCreate
		} else {
			watchEvent.EventType = EventTypeUpdate
		}
		watchEvent.Record = w.parseRecord(name, event.Kv.Value)
	case clientv3.EventTypeDelete:
		watchEvent.EventType = EventTypeDelete
		// 删除事件从变化前的值解析记录，让回调方拿到被删服务的信息
		if event.PrevKv != nil {
			watchEvent.Record = w.parseRecord(name, event.PrevKv.Value)
		}
	}

	return watchEvent
}

// parseRecord 解析记录JSON，失败时返回nil并记录日志
func (w *Watcher) parseRecord(name string, data []byte) *model.ServiceRecord {
	if len(data) == 0 {
		return nil
	}

	var record model.ServiceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		w.logger.Warn("解析服务记录失败", zap.String("name", name), zap.Error(err))
		return nil
	}

	return &record
}
