package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/hewenyu/svc-hub/pkg/registry"
)

// Resolver 把本地域内的DNS查询映射到注册表查询
// 服务名 s 对应 s.<domain> 的A/AAAA/CNAME记录和 _s._tcp.<domain> 的SRV记录，
// 不健康的服务不参与解析
type Resolver struct {
	registry registry.Registry
	domain   string // 本地域，不带末尾的点
	ttl      uint32
}

// NewResolver 创建注册表解析器
func NewResolver(reg registry.Registry, domain string, ttl int) *Resolver {
	return &Resolver{
		registry: reg,
		domain:   strings.TrimSuffix(strings.ToLower(domain), "."),
		ttl:      uint32(ttl),
	}
}

// Lookup 解析本地域内的查询，没有对应记录时返回(nil, nil)
func (r *Resolver) Lookup(ctx context.Context, qname string, qtype uint16) ([]dns.RR, error) {
	name := strings.TrimSuffix(strings.ToLower(qname), ".")

	serviceName, srvForm := r.extractService(name)
	if serviceName == "" {
		return nil, nil
	}

	// SRV查询只接受 _s._tcp 形式，其他类型只接受平坦形式
	if srvForm != (qtype == dns.TypeSRV) {
		return nil, nil
	}

	record, err := r.registry.Discover(ctx, serviceName)
	if err != nil {
		if errors.Is(err, registry.ErrServiceNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// 不健康的服务对DNS不可见
	if !record.Healthy {
		return nil, nil
	}

	host, port, ok := hostPortFromURL(record.URL)
	if !ok {
		return nil, nil
	}

	var rr dns.RR
	switch qtype {
	case dns.TypeA:
		rr, err = r.addressRecord(qname, host, false)
	case dns.TypeAAAA:
		rr, err = r.addressRecord(qname, host, true)
	case dns.TypeCNAME:
		if net.ParseIP(host) != nil {
			return nil, nil
		}
		rr, err = createCNAMERecord(qname, host, r.ttl)
	case dns.TypeSRV:
		target := serviceName + "." + r.domain + "."
		rr, err = createSRVRecord(qname, target, port, r.ttl)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("生成DNS记录失败 [%s]: %w", qname, err)
	}
	if rr == nil {
		return nil, nil
	}

	return []dns.RR{rr}, nil
}

// addressRecord 为地址类查询生成记录
// 服务URL的主机是IP时生成对应的A/AAAA记录，是主机名时生成CNAME记录
func (r *Resolver) addressRecord(qname, host string, v6 bool) (dns.RR, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return createCNAMERecord(qname, host, r.ttl)
	}

	if v6 {
		if ip.To4() != nil {
			return nil, nil
		}
		return createAAAARecord(qname, host, r.ttl)
	}

	if ip.To4() == nil {
		return nil, nil
	}
	return createARecord(qname, host, r.ttl)
}

// extractService 从查询域名中提取服务名
// 返回的srvForm表示域名是否为 _s._tcp.<domain> 的SRV形式
func (r *Resolver) extractService(name string) (serviceName string, srvForm bool) {
	// SRV形式: _<服务名>._tcp.<domain>
	if strings.HasPrefix(name, "_") {
		rest := strings.TrimPrefix(name, "_")
		idx := strings.Index(rest, "._tcp.")
		if idx <= 0 {
			return "", false
		}
		if rest[idx+len("._tcp."):] != r.domain {
			return "", false
		}
		return rest[:idx], true
	}

	// 平坦形式: <服务名>.<domain>，服务名中不允许再有点
	prefix, found := strings.CutSuffix(name, "."+r.domain)
	if !found || prefix == "" || strings.Contains(prefix, ".") {
		return "", false
	}

	return prefix, false
}

// hostPortFromURL 从服务URL中解析主机和端口
// 没有显式端口时按协议取默认端口，解析失败时ok为false
func hostPortFromURL(rawURL string) (host string, port int, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", 0, false
	}

	host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false
		}
	} else if u.Scheme == "https" {
		port = 443
	} else {
		port = 80
	}

	return host, port, true
}

// createARecord 创建A记录
func createARecord(name, ip string, ttl uint32) (dns.RR, error) {
	return dns.NewRR(fmt.Sprintf("%s %d IN A %s", name, ttl, ip))
}

// createAAAARecord 创建AAAA记录
func createAAAARecord(name, ip string, ttl uint32) (dns.RR, error) {
	return dns.NewRR(fmt.Sprintf("%s %d IN AAAA %s", name, ttl, ip))
}

// createCNAMERecord 创建CNAME记录
func createCNAMERecord(name, target string, ttl uint32) (dns.RR, error) {
	return dns.NewRR(fmt.Sprintf("%s %d IN CNAME %s", name, ttl, dns.Fqdn(target)))
}

// createSRVRecord 创建SRV记录
func createSRVRecord(name, target string, port int, ttl uint32) (dns.RR, error) {
	return dns.NewRR(fmt.Sprintf("%s %d IN SRV 10 10 %d %s", name, ttl, port, dns.Fqdn(target)))
}
