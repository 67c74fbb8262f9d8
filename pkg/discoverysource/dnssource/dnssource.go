// Package dnssource implements a discovery.Publisher for URI properties
// over DNS: a cluster's live endpoints are published as SRV records
// under _<scheme>._tcp.<cluster>.<domain>, and the source polls the
// zone, turning record churn into Initialize/Add events on the sink.
//
// This is a reference publisher, not part of the reconciliation core;
// any backend that honors the Publisher contract can replace it.
package dnssource

import (
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/cuemby/wayfinder/pkg/discovery"
	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/properties"
)

// Exchanger is the one dns.Client method this package needs, split out
// so tests can answer queries without a network.
type Exchanger interface {
	Exchange(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error)
}

// Config parameterizes a Source.
type Config struct {
	// Server is the DNS server to query, host:port.
	Server string
	// Domain is the zone suffix cluster records live under.
	Domain string
	// Scheme is the URI scheme endpoints are published for, and the SRV
	// service label queried (_<scheme>._tcp...).
	Scheme string
	// PollInterval is how often each watched cluster is re-resolved.
	// Defaults to 10s.
	PollInterval time.Duration
	// Client overrides the DNS client; nil gets a default dns.Client.
	Client Exchanger
}

// Source polls DNS SRV records and publishes them as URI properties.
type Source struct {
	cfg Config
}

var _ discovery.Publisher[properties.UriProperties] = (*Source)(nil)

// New creates a Source. The zero-value pieces of cfg get defaults.
func New(cfg Config) *Source {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Client == nil {
		cfg.Client = &dns.Client{Timeout: 5 * time.Second}
	}
	return &Source{cfg: cfg}
}

// Watch starts polling clusterName's SRV records. The first resolution
// (successful or not) produces exactly one Initialize on sink; a failed
// or empty first lookup initializes with nil, "known absent." Subsequent
// polls produce an Add only when the endpoint set actually changed.
// The returned cancel stops the poll goroutine.
func (s *Source) Watch(clusterName string, sink discovery.Sink[properties.UriProperties]) (cancel func()) {
	stop := make(chan struct{})

	go func() {
		last := s.resolve(clusterName)
		sink.Initialize(last)

		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				next := s.resolve(clusterName)
				if sameEndpoints(last, next) {
					continue
				}
				last = next
				sink.Add(next)
			}
		}
	}()

	return func() { close(stop) }
}

// resolve queries the cluster's SRV records and builds UriProperties
// from the answer. Lookup failures and empty answers both come back nil:
// from DNS's point of view the cluster currently has no endpoints.
func (s *Source) resolve(clusterName string) *properties.UriProperties {
	name := dns.Fqdn(fmt.Sprintf("_%s._tcp.%s.%s", s.cfg.Scheme, clusterName, s.cfg.Domain))

	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeSRV)

	resp, _, err := s.cfg.Client.Exchange(m, s.cfg.Server)
	if err != nil {
		log.WithCluster(clusterName).Warn().Err(err).Str("query", name).Msg("dns lookup failed")
		return nil
	}
	if resp.Rcode != dns.RcodeSuccess {
		log.WithCluster(clusterName).Debug().Str("query", name).Str("rcode", dns.RcodeToString[resp.Rcode]).Msg("dns lookup unsuccessful")
		return nil
	}

	endpoints := make(map[string]properties.URIEndpoint)
	for _, rr := range resp.Answer {
		srv, ok := rr.(*dns.SRV)
		if !ok {
			continue
		}
		uri := fmt.Sprintf("%s://%s:%d", s.cfg.Scheme, strings.TrimSuffix(srv.Target, "."), srv.Port)
		endpoints[uri] = properties.URIEndpoint{
			URI: uri,
			PartitionDataMap: map[int]properties.PartitionData{
				0: {Weight: float64(srv.Weight)},
			},
		}
	}
	if len(endpoints) == 0 {
		return nil
	}

	return &properties.UriProperties{ClusterName: clusterName, Endpoints: endpoints}
}

func sameEndpoints(a, b *properties.UriProperties) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a.Endpoints) != len(b.Endpoints) {
		return false
	}
	for uri, ae := range a.Endpoints {
		be, ok := b.Endpoints[uri]
		if !ok {
			return false
		}
		if len(ae.PartitionDataMap) != len(be.PartitionDataMap) {
			return false
		}
		for id, ad := range ae.PartitionDataMap {
			if bd, ok := be.PartitionDataMap[id]; !ok || ad != bd {
				return false
			}
		}
	}
	return true
}
