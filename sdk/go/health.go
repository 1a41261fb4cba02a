package sdk

import (
	"context"
	"fmt"
	"log"
	"time"
)

// StartHealthLoop 启动周期性自检任务
// 注册中枢不做后台探测，Healthy标志的新鲜度靠调用方周期性触发维持
func (c *Client) StartHealthLoop() {
	c.StopHealthLoop()

	c.stopChan = make(chan struct{})

	go func(stop chan struct{}) {
		ticker := time.NewTicker(c.config.HealthInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
				result, err := c.HealthCheck(ctx, c.config.ServiceName)
				cancel()

				if err != nil {
					log.Printf("自检触发失败: %v, 将在下一个周期重试", err)
					continue
				}
				if !result.Healthy {
					log.Printf("服务自检未通过: %s", result.Error)
				}
			case <-stop:
				return
			}
		}
	}(c.stopChan)
}

// StopHealthLoop 停止自检任务
func (c *Client) StopHealthLoop() {
	if c.stopChan != nil {
		close(c.stopChan)
		c.stopChan = nil
	}
}

// Close 关闭客户端，停止自检任务并注销服务
func (c *Client) Close(ctx context.Context) error {
	c.StopHealthLoop()

	if c.isRegistered {
		if err := c.Deregister(ctx); err != nil {
			return fmt.Errorf("注销服务失败: %w", err)
		}
	}

	return nil
}
