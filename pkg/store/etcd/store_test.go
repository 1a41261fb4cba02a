package etcd

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hewenyu/svc-hub/pkg/config"
	"github.com/hewenyu/svc-hub/pkg/model"
)

// 这些测试需要一个正在运行的etcd实例
// 可以通过docker运行: docker run -d --name etcd-test -p 2379:2379 bitnami/etcd:3.5 --allow-none-authentication

func getEtcdStore() (*EtcdStore, error) {
	if os.Getenv("ETCD_ENDPOINTS") == "" {
		return nil, errors.New("ETCD_ENDPOINTS 未设置")
	}

	cfg := &config.EtcdConfig{
		Endpoints:      []string{os.Getenv("ETCD_ENDPOINTS")},
		DialTimeout:    5 * time.Second,
		RequestTimeout: 10 * time.Second,
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewEtcdStore(client), nil
}

func TestEtcdStoreCRUD(t *testing.T) {
	// 如果没有etcd实例运行，跳过测试
	store, err := getEtcdStore()
	if err != nil {
		t.Skip("跳过测试，无法连接到etcd: ", err)
		return
	}
	defer store.Close()

	ctx := context.Background()
	name := "hub-test-auth"

	// 清理可能残留的测试记录
	_ = store.Delete(ctx, name)

	record := &model.ServiceRecord{
		Name:         name,
		URL:          "http://10.0.0.1:8080",
		Metadata:     map[string]any{"version": "1.0"},
		RegisteredAt: time.Now().UTC(),
		Healthy:      true,
	}

	// 测试Put
	if err := store.Put(ctx, name, record); err != nil {
		t.Fatalf("Put失败: %v", err)
	}

	// 测试Get
	saved, err := store.Get(ctx, name)
	if err != nil {
		t.Fatalf("Get失败: %v", err)
	}
	if saved == nil {
		t.Fatal("Get返回nil，期望拿到刚写入的记录")
	}
	if saved.URL != record.URL {
		t.Fatalf("URL不一致，期望 %s，实际 %s", record.URL, saved.URL)
	}
	if !saved.Healthy {
		t.Fatal("新写入的记录应为健康状态")
	}
	if saved.LastHealthCheck != nil {
		t.Fatal("未探测过的记录last_health_check应为空")
	}

	// 测试覆盖写入后healthy字段的往返
	now := time.Now().UTC()
	saved.Healthy = false
	saved.LastHealthCheck = &now
	if err := store.Put(ctx, name, saved); err != nil {
		t.Fatalf("覆盖写入失败: %v", err)
	}

	updated, err := store.Get(ctx, name)
	if err != nil {
		t.Fatalf("Get失败: %v", err)
	}
	if updated.Healthy {
		t.Fatal("覆盖写入后healthy应为false")
	}
	if updated.LastHealthCheck == nil {
		t.Fatal("覆盖写入后last_health_check不应为空")
	}

	// 测试Delete
	if err := store.Delete(ctx, name); err != nil {
		t.Fatalf("Delete失败: %v", err)
	}

	// 确认记录已被删除
	missing, err := store.Get(ctx, name)
	if err != nil {
		t.Fatalf("Get失败: %v", err)
	}
	if missing != nil {
		t.Fatalf("记录应该已被删除，但仍然存在: %+v", missing)
	}

	// 删除不存在的记录不应报错
	if err := store.Delete(ctx, name); err != nil {
		t.Fatalf("重复删除不应报错: %v", err)
	}

	t.Log("etcd注册表存储基本功能测试通过")
}

func TestEtcdStoreListByPrefix(t *testing.T) {
	// 如果没有etcd实例运行，跳过测试
	store, err := getEtcdStore()
	if err != nil {
		t.Skip("跳过测试，无法连接到etcd: ", err)
		return
	}
	defer store.Close()

	ctx := context.Background()
	names := []string{"hub-test-list-cache", "hub-test-list-auth", "hub-test-other"}

	// 清理并写入测试记录
	for _, name := range names {
		_ = store.Delete(ctx, name)
	}
	defer func() {
		for _, name := range names {
			_ = store.Delete(ctx, name)
		}
	}()

	for _, name := range names {
		err := store.Put(ctx, name, &model.ServiceRecord{
			Name:         name,
			URL:          "http://10.0.0.1:8080",
			RegisteredAt: time.Now().UTC(),
			Healthy:      true,
		})
		if err != nil {
			t.Fatalf("写入测试记录失败 [%s]: %v", name, err)
		}
	}

	// 按前缀过滤，结果应按名称升序且不带etcd内部键前缀
	entries, err := store.ListByPrefix(ctx, "hub-test-list-")
	if err != nil {
		t.Fatalf("ListByPrefix失败: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListByPrefix返回数量不一致，期望 2，实际 %d", len(entries))
	}
	if entries[0].Name != "hub-test-list-auth" || entries[1].Name != "hub-test-list-cache" {
		t.Fatalf("ListByPrefix结果顺序错误: %s, %s", entries[0].Name, entries[1].Name)
	}

	// 没有匹配时返回空切片
	empty, err := store.ListByPrefix(ctx, "hub-test-none-")
	if err != nil {
		t.Fatalf("ListByPrefix失败: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("期望空结果，实际返回 %d 条", len(empty))
	}

	t.Log("etcd注册表前缀查询测试通过")
}
