package dns

import (
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/hewenyu/svc-hub/pkg/config"
)

// UpstreamResolver 把本地域之外的查询转发到上游DNS服务器
type UpstreamResolver struct {
	servers []string
	client  *dns.Client
	cache   *DNSCache
	logger  config.Logger
}

// NewUpstreamResolver 创建上游DNS解析器
func NewUpstreamResolver(servers []string, cache *DNSCache, logger config.Logger) *UpstreamResolver {
	if len(servers) == 0 {
		servers = []string{"8.8.8.8:53", "8.8.4.4:53"}
	}

	// 允许配置中省略端口
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}

	return &UpstreamResolver{
		servers: normalized,
		client: &dns.Client{
			Net:     "udp",
			Timeout: 5 * time.Second,
		},
		cache:  cache,
		logger: logger,
	}
}

// Resolve 转发请求到上游服务器，首个服务器失败时换一个重试一次
func (ur *UpstreamResolver) Resolve(req *dns.Msg) (*dns.Msg, error) {
	if len(req.Question) == 0 {
		return nil, errors.New("无效的DNS请求: 没有问题部分")
	}

	cacheKey := GetCacheKey(req.Question[0])
	if cachedResp := ur.cache.Get(cacheKey); cachedResp != nil {
		// 设置ID以匹配请求
		cachedResp.Id = req.Id
		return cachedResp, nil
	}

	server := ur.randomServer()
	resp, rtt, err := ur.client.Exchange(req, server)
	if err != nil {
		if len(ur.servers) == 1 {
			return nil, err
		}
		backupServer := ur.randomServerExcept(server)
		ur.logger.Warn("上游DNS查询失败，尝试备用服务器",
			zap.String("server", server),
			zap.String("backup", backupServer),
			zap.Error(err))
		server = backupServer
		resp, rtt, err = ur.client.Exchange(req, server)
		if err != nil {
			return nil, err
		}
	}

	ur.logger.Debug("上游DNS查询完成",
		zap.String("question", req.Question[0].Name),
		zap.String("server", server),
		zap.Duration("rtt", rtt))

	if resp != nil && resp.Rcode == dns.RcodeSuccess {
		ur.cache.SetWithTTL(cacheKey, resp, answerTTL(resp))
	}

	return resp, nil
}

// answerTTL 取响应中最小的记录TTL作为缓存时长
func answerTTL(resp *dns.Msg) time.Duration {
	if len(resp.Answer) == 0 {
		return 60 * time.Second
	}

	minTTL := resp.Answer[0].Header().Ttl
	for _, rr := range resp.Answer {
		if rr.Header().Ttl < minTTL {
			minTTL = rr.Header().Ttl
		}
	}
	return time.Duration(minTTL) * time.Second
}

// randomServer 随机选择一个上游服务器
func (ur *UpstreamResolver) randomServer() string {
	return ur.servers[rand.Intn(len(ur.servers))]
}

// randomServerExcept 随机选择一个不同于指定地址的上游服务器
func (ur *UpstreamResolver) randomServerExcept(except string) string {
	if len(ur.servers) == 1 {
		return ur.servers[0]
	}

	for {
		server := ur.randomServer()
		if server != except {
			return server
		}
	}
}
