package degrader

import (
	"testing"
	"time"

	"github.com/cuemby/wayfinder/pkg/transport"
)

func trackers(uris ...string) []*transport.Tracker {
	out := make([]*transport.Tracker, len(uris))
	for i, u := range uris {
		out[i] = &transport.Tracker{URI: u}
	}
	return out
}

func TestSelectSkipsDegradedEndpoint(t *testing.T) {
	s, err := New("svc", map[string]string{PropHighLatency: "100"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := s.(*Degrader)

	cands := trackers("http://a", "http://b")
	d.ObserveLatency("http://a", 200*time.Millisecond)

	for i := 0; i < 4; i++ {
		got, ok := d.Select(cands)
		if !ok {
			t.Fatal("no candidate selected")
		}
		if got.URI != "http://b" {
			t.Fatalf("call %d: selected degraded endpoint %s", i, got.URI)
		}
	}
}

func TestDegradedEndpointRecovers(t *testing.T) {
	s, _ := New("svc", map[string]string{PropHighLatency: "100"})
	d := s.(*Degrader)
	cands := trackers("http://a", "http://b")

	d.ObserveLatency("http://a", 200*time.Millisecond)
	d.ObserveLatency("http://a", 10*time.Millisecond)

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		got, _ := d.Select(cands)
		seen[got.URI] = true
	}
	if !seen["http://a"] {
		t.Error("recovered endpoint never selected again")
	}
}

func TestFallbackWhenAllDegraded(t *testing.T) {
	s, _ := New("svc", map[string]string{PropHighLatency: "100"})
	d := s.(*Degrader)
	cands := trackers("http://a", "http://b")

	d.ObserveLatency("http://a", time.Second)
	d.ObserveLatency("http://b", time.Second)

	if _, ok := d.Select(cands); !ok {
		t.Error("fully degraded set should still select rather than fail")
	}
}

func TestSelectEmpty(t *testing.T) {
	s, _ := New("svc", nil)
	if _, ok := s.Select(nil); ok {
		t.Error("expected no selection from an empty candidate list")
	}
}

func TestPropertyParsing(t *testing.T) {
	s, _ := New("svc", map[string]string{
		PropMaxRate:     "50",
		PropBurst:       "5",
		PropHighLatency: "250",
	})
	d := s.(*Degrader)
	if float64(d.maxRate) != 50 {
		t.Errorf("maxRate = %v, want 50", d.maxRate)
	}
	if d.burst != 5 {
		t.Errorf("burst = %d, want 5", d.burst)
	}
	if d.highLatency != 250*time.Millisecond {
		t.Errorf("highLatency = %v, want 250ms", d.highLatency)
	}
}

func TestMalformedPropertiesFallBack(t *testing.T) {
	s, err := New("svc", map[string]string{
		PropMaxRate: "not-a-number",
		PropBurst:   "-3",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := s.(*Degrader)
	if float64(d.maxRate) != defaultMaxRate {
		t.Errorf("maxRate = %v, want default %v", d.maxRate, defaultMaxRate)
	}
	if d.burst != defaultBurst {
		t.Errorf("burst = %d, want default %d", d.burst, defaultBurst)
	}
}
