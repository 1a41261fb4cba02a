package dns

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/hewenyu/svc-hub/pkg/config"
	"github.com/hewenyu/svc-hub/pkg/registry"
)

// Server DNS服务器，对外提供注册表的DNS查询入口
type Server struct {
	servers    []*dns.Server
	handler    *Handler
	resolver   *Resolver
	upstream   *UpstreamResolver
	cache      *DNSCache
	config     config.DNSConfig
	logger     config.Logger
	cancelFunc context.CancelFunc
}

// NewServer 创建DNS服务器
func NewServer(reg registry.Registry, conf *config.Config, logger config.Logger) (*Server, error) {
	cache := NewDNSCache(conf.DNS.CacheTTL)
	resolver := NewResolver(reg, conf.DNS.Domain, conf.DNS.TTL)
	upstream := NewUpstreamResolver(conf.DNS.Upstream, cache, logger)
	handler := NewHandler(resolver, upstream, cache, conf.DNS.Domain, logger)

	addr := net.JoinHostPort(conf.DNS.ListenAddress, strconv.Itoa(conf.DNS.Port))

	var nets []string
	switch conf.DNS.Protocol {
	case "udp":
		nets = []string{"udp"}
	case "tcp":
		nets = []string{"tcp"}
	case "both", "":
		nets = []string{"udp", "tcp"}
	default:
		return nil, fmt.Errorf("不支持的DNS协议: %s", conf.DNS.Protocol)
	}

	servers := make([]*dns.Server, 0, len(nets))
	for _, n := range nets {
		servers = append(servers, &dns.Server{
			Addr:    addr,
			Net:     n,
			Handler: handler,
		})
	}

	return &Server{
		servers:  servers,
		handler:  handler,
		resolver: resolver,
		upstream: upstream,
		cache:    cache,
		config:   conf.DNS,
		logger:   logger,
	}, nil
}

// Start 启动DNS服务器，监听协程在后台运行
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.cache.StartCleanupRoutine(ctx, time.Minute)

	for _, srv := range s.servers {
		srv := srv
		go func() {
			s.logger.Info("DNS服务器启动",
				zap.String("addr", srv.Addr),
				zap.String("net", srv.Net))
			if err := srv.ListenAndServe(); err != nil {
				s.logger.Error("DNS服务器监听失败",
					zap.String("net", srv.Net),
					zap.Error(err))
			}
		}()
	}

	return nil
}

// Stop 停止DNS服务器
func (s *Server) Stop() error {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	for _, srv := range s.servers {
		if err := srv.Shutdown(); err != nil {
			s.logger.Warn("关闭DNS服务器失败",
				zap.String("net", srv.Net),
				zap.Error(err))
		}
	}

	return nil
}

// InvalidateService 清除某个服务的DNS响应缓存
// 注册信息变化时由监听方调用
func (s *Server) InvalidateService(name string) {
	s.cache.InvalidateService(name, s.config.Domain)
}
