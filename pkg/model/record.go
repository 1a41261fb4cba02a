package model

import "time"

// ServiceRecord 表示一条已注册的服务记录
// 同名重复注册会整体替换旧记录（元数据不做合并），注册时间随之重置
type ServiceRecord struct {
	Name            string         `json:"name"`                        // 服务名称，注册表中的唯一键
	URL             string         `json:"url"`                         // 服务基础地址，原样存储
	Metadata        map[string]any `json:"metadata"`                    // 服务元数据，注册时缺省为空映射
	RegisteredAt    time.Time      `json:"registered_at"`               // 注册时间，重复注册会重置
	LastHealthCheck *time.Time     `json:"last_health_check,omitempty"` // 最近一次健康探测时间，探测前为空
	Healthy         bool           `json:"healthy"`                     // 健康状态，注册时为true，此后仅由健康探测写入
}

// Clone 返回记录的副本，避免调用方与存储共享同一个对象
// 元数据按键浅拷贝，记录中嵌套的JSON值视为只读
func (r *ServiceRecord) Clone() *ServiceRecord {
	if r == nil {
		return nil
	}

	clone := *r
	if r.Metadata != nil {
		clone.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}
	if r.LastHealthCheck != nil {
		t := *r.LastHealthCheck
		clone.LastHealthCheck = &t
	}

	return &clone
}

// Entry 表示列表查询返回的一条 (名称, 记录) 结果
type Entry struct {
	Name   string         `json:"name"`
	Record *ServiceRecord `json:"record"`
}

// ProbeResult 表示一次健康探测的结果
// 探测本身的网络失败不作为错误上抛，而是被吸收为 Healthy=false
type ProbeResult struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"` // 探测失败原因，仅用于诊断
}
