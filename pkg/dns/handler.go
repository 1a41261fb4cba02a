package dns

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/hewenyu/svc-hub/pkg/config"
)

// Handler DNS请求处理器
// 本地域内的查询走注册表解析器，其余查询转发到上游
type Handler struct {
	resolver *Resolver
	upstream *UpstreamResolver
	cache    *DNSCache
	domain   string
	logger   config.Logger
}

// NewHandler 创建DNS请求处理器
func NewHandler(resolver *Resolver, upstream *UpstreamResolver, cache *DNSCache, domain string, logger config.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		upstream: upstream,
		cache:    cache,
		domain:   strings.TrimSuffix(strings.ToLower(domain), "."),
		logger:   logger,
	}
}

// ServeDNS 处理DNS请求
func (h *Handler) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = false

	// 只处理标准查询
	if r.Opcode != dns.OpcodeQuery {
		m.Rcode = dns.RcodeNotImplemented
		w.WriteMsg(m)
		return
	}

	if len(r.Question) == 0 {
		m.Rcode = dns.RcodeFormatError
		w.WriteMsg(m)
		return
	}

	q := r.Question[0]
	name := strings.ToLower(q.Name)

	cacheKey := GetCacheKey(q)
	if cached := h.cache.Get(cacheKey); cached != nil {
		// 设置ID以匹配请求
		cached.Id = r.Id
		w.WriteMsg(cached)
		return
	}

	if strings.HasSuffix(name, "."+h.domain+".") || name == h.domain+"." {
		h.handleLocalDomain(w, r, m, q)
		return
	}

	h.handleUpstreamQuery(w, r)
}

// handleLocalDomain 处理本地域内的查询
func (h *Handler) handleLocalDomain(w dns.ResponseWriter, r *dns.Msg, m *dns.Msg, q dns.Question) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := h.resolver.Lookup(ctx, q.Name, q.Qtype)
	if err != nil {
		h.logger.Error("本地域DNS解析失败",
			zap.String("question", q.Name),
			zap.Error(err))
		m.Rcode = dns.RcodeServerFailure
		w.WriteMsg(m)
		return
	}

	// 本地域内查不到的名字返回NXDOMAIN，不再转发上游
	m.Authoritative = true
	if len(records) == 0 {
		m.Rcode = dns.RcodeNameError
		w.WriteMsg(m)
		return
	}

	m.Answer = append(m.Answer, records...)
	h.cache.Set(GetCacheKey(q), m.Copy())

	w.WriteMsg(m)
}

// handleUpstreamQuery 转发查询到上游DNS
func (h *Handler) handleUpstreamQuery(w dns.ResponseWriter, r *dns.Msg) {
	resp, err := h.upstream.Resolve(r)
	if err != nil {
		h.logger.Warn("上游DNS查询失败",
			zap.String("question", r.Question[0].Name),
			zap.Error(err))
		m := new(dns.Msg)
		m.SetReply(r)
		m.Rcode = dns.RcodeServerFailure
		w.WriteMsg(m)
		return
	}

	w.WriteMsg(resp)
}
