package rangepartition

import "testing"

func TestPartitionForBucketsSequentialKeys(t *testing.T) {
	a, err := New(4, 1000)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	p0, _ := a.PartitionFor("500")
	p1, _ := a.PartitionFor("1500")
	if p0 == p1 {
		t.Errorf("expected keys in different buckets to land in different partitions, got %d and %d", p0, p1)
	}
}

func TestPartitionForRejectsNonNumericKey(t *testing.T) {
	a, _ := New(4, 1000)
	if _, err := a.PartitionFor("not-a-number"); err == nil {
		t.Error("expected an error for a non-numeric key")
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	if _, err := New(0, 1000); err == nil {
		t.Error("New(0, ...) should error")
	}
	if _, err := New(4, 0); err == nil {
		t.Error("New(..., 0) should error")
	}
}
