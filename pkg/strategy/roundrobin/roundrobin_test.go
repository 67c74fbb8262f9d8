package roundrobin

import (
	"testing"

	"github.com/cuemby/wayfinder/pkg/transport"
)

func trackers(uris ...string) []*transport.Tracker {
	out := make([]*transport.Tracker, len(uris))
	for i, u := range uris {
		out[i] = &transport.Tracker{URI: u}
	}
	return out
}

func TestSelectRotates(t *testing.T) {
	s, err := New("svc", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cands := trackers("http://a", "http://b", "http://c")
	want := []string{"http://a", "http://b", "http://c", "http://a"}
	for i, w := range want {
		got, ok := s.Select(cands)
		if !ok {
			t.Fatalf("call %d: no candidate selected", i)
		}
		if got.URI != w {
			t.Errorf("call %d: got %s, want %s", i, got.URI, w)
		}
	}
}

func TestSelectEmpty(t *testing.T) {
	s, _ := New("svc", nil)
	if _, ok := s.Select(nil); ok {
		t.Error("expected no selection from an empty candidate list")
	}
}

func TestSelectSurvivesShrinkingList(t *testing.T) {
	s, _ := New("svc", nil)
	for i := 0; i < 5; i++ {
		s.Select(trackers("http://a", "http://b", "http://c"))
	}
	// The stored index may exceed the new, shorter list.
	if got, ok := s.Select(trackers("http://a")); !ok || got.URI != "http://a" {
		t.Errorf("got %v ok=%v, want the single remaining candidate", got, ok)
	}
}
