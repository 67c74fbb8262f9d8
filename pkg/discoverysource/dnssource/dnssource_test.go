package dnssource

import (
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/cuemby/wayfinder/pkg/properties"
)

// fakeExchanger answers every query with a fixed set of SRV targets,
// swappable mid-test to simulate zone churn.
type fakeExchanger struct {
	mu      sync.Mutex
	targets []*dns.SRV
	err     error
}

func (f *fakeExchanger) set(targets ...*dns.SRV) {
	f.mu.Lock()
	f.targets = targets
	f.mu.Unlock()
}

func (f *fakeExchanger) Exchange(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	resp := new(dns.Msg)
	resp.SetReply(m)
	for _, srv := range f.targets {
		resp.Answer = append(resp.Answer, srv)
	}
	return resp, 0, nil
}

func srv(target string, port, weight uint16) *dns.SRV {
	return &dns.SRV{
		Hdr:    dns.RR_Header{Name: "_http._tcp.sna-1.example.org.", Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: 10},
		Target: target + ".",
		Port:   port,
		Weight: weight,
	}
}

// recordingSink collects Initialize/Add/Remove calls.
type recordingSink struct {
	mu     sync.Mutex
	inits  []*properties.UriProperties
	adds   []*properties.UriProperties
	remove int
}

func (s *recordingSink) Initialize(v *properties.UriProperties) {
	s.mu.Lock()
	s.inits = append(s.inits, v)
	s.mu.Unlock()
}

func (s *recordingSink) Add(v *properties.UriProperties) {
	s.mu.Lock()
	s.adds = append(s.adds, v)
	s.mu.Unlock()
}

func (s *recordingSink) Remove() {
	s.mu.Lock()
	s.remove++
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() (inits, adds []*properties.UriProperties) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*properties.UriProperties(nil), s.inits...), append([]*properties.UriProperties(nil), s.adds...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestWatchInitializesOnceWithResolvedEndpoints(t *testing.T) {
	ex := &fakeExchanger{}
	ex.set(srv("h1", 80, 1))

	src := New(Config{Server: "127.0.0.1:53", Domain: "example.org", Scheme: "http", PollInterval: 10 * time.Millisecond, Client: ex})

	sink := &recordingSink{}
	cancel := src.Watch("sna-1", sink)
	defer cancel()

	waitFor(t, func() bool { i, _ := sink.snapshot(); return len(i) == 1 })

	inits, _ := sink.snapshot()
	props := inits[0]
	if props == nil {
		t.Fatal("expected a non-nil initialize for a resolvable cluster")
	}
	if _, ok := props.Endpoints["http://h1:80"]; !ok {
		t.Errorf("endpoints = %v, want http://h1:80", props.Endpoints)
	}
	if w := props.Endpoints["http://h1:80"].PartitionDataMap[0].Weight; w != 1 {
		t.Errorf("weight = %v, want 1", w)
	}
}

func TestWatchAddsOnZoneChange(t *testing.T) {
	ex := &fakeExchanger{}
	ex.set(srv("h1", 80, 1))

	src := New(Config{Server: "127.0.0.1:53", Domain: "example.org", Scheme: "http", PollInterval: 10 * time.Millisecond, Client: ex})

	sink := &recordingSink{}
	cancel := src.Watch("sna-1", sink)
	defer cancel()

	waitFor(t, func() bool { i, _ := sink.snapshot(); return len(i) == 1 })

	ex.set(srv("h1", 80, 1), srv("h2", 80, 2))
	waitFor(t, func() bool { _, a := sink.snapshot(); return len(a) >= 1 })

	_, adds := sink.snapshot()
	if _, ok := adds[0].Endpoints["http://h2:80"]; !ok {
		t.Errorf("add after zone change should carry h2, got %v", adds[0].Endpoints)
	}
}

func TestWatchSuppressesNoChangePolls(t *testing.T) {
	ex := &fakeExchanger{}
	ex.set(srv("h1", 80, 1))

	src := New(Config{Server: "127.0.0.1:53", Domain: "example.org", Scheme: "http", PollInterval: 5 * time.Millisecond, Client: ex})

	sink := &recordingSink{}
	cancel := src.Watch("sna-1", sink)
	defer cancel()

	time.Sleep(100 * time.Millisecond)

	inits, adds := sink.snapshot()
	if len(inits) != 1 {
		t.Errorf("inits = %d, want exactly 1", len(inits))
	}
	if len(adds) != 0 {
		t.Errorf("adds = %d, want 0 for an unchanged zone", len(adds))
	}
}

func TestWatchInitializesNilOnFailure(t *testing.T) {
	ex := &fakeExchanger{err: errFake}

	src := New(Config{Server: "127.0.0.1:53", Domain: "example.org", Scheme: "http", PollInterval: time.Hour, Client: ex})

	sink := &recordingSink{}
	cancel := src.Watch("sna-1", sink)
	defer cancel()

	waitFor(t, func() bool { i, _ := sink.snapshot(); return len(i) == 1 })

	inits, _ := sink.snapshot()
	if inits[0] != nil {
		t.Error("a failed first lookup must initialize with nil (known absent)")
	}
}

var errFake = &dns.Error{}
