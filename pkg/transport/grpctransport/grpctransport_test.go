package grpctransport

import (
	"testing"
	"time"
)

func TestConnForCachesPerTarget(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Shutdown(func(error) {})

	a, err := c.connFor("localhost:9000")
	if err != nil {
		t.Fatalf("connFor: %v", err)
	}
	b, err := c.connFor("localhost:9000")
	if err != nil {
		t.Fatalf("connFor: %v", err)
	}
	if a != b {
		t.Error("same target should reuse one connection")
	}

	other, err := c.connFor("localhost:9001")
	if err != nil {
		t.Fatalf("connFor: %v", err)
	}
	if other == a {
		t.Error("distinct targets must not share a connection")
	}
}

func TestShutdownClosesAndRejectsNewConns(t *testing.T) {
	c, _ := New(nil)
	if _, err := c.connFor("localhost:9000"); err != nil {
		t.Fatalf("connFor: %v", err)
	}

	done := make(chan error, 1)
	c.Shutdown(func(err error) { done <- err })

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("shutdown reported %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown callback never fired")
	}

	if _, err := c.connFor("localhost:9000"); err == nil {
		t.Error("connFor after shutdown should fail")
	}
}

func TestCallTimeoutFromProperties(t *testing.T) {
	c, _ := New(map[string]string{PropCallTimeoutMs: "250"})
	if c.callTimeout != 250*time.Millisecond {
		t.Errorf("callTimeout = %v, want 250ms", c.callTimeout)
	}
}
