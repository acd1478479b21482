package audio

import "testing"

func TestRingBuffer_AddAndGet(t *testing.T) {
	r := NewRingBuffer(10)
	if r.FreeSpace() != 10 {
		t.Fatalf("expected free space 10, got %d", r.FreeSpace())
	}

	if !r.AddData([]int16{1, 2, 3}) {
		t.Fatalf("AddData should have succeeded")
	}
	if r.DataSize() != 3 {
		t.Errorf("expected data size 3, got %d", r.DataSize())
	}

	out := make([]int16, 3)
	n := r.Get(out)
	if n != 3 {
		t.Fatalf("expected 3 samples read, got %d", n)
	}
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Errorf("unexpected samples: %v", out)
	}
	if r.DataSize() != 0 {
		t.Errorf("expected ring empty after read, got size %d", r.DataSize())
	}
}

func TestRingBuffer_AddData_FailsSilentlyOnOverflow(t *testing.T) {
	r := NewRingBuffer(4)
	if r.AddData([]int16{1, 2, 3, 4, 5}) {
		t.Fatalf("AddData should fail when free space is insufficient")
	}
	if r.DataSize() != 0 {
		t.Errorf("expected no partial write on overflow, got size %d", r.DataSize())
	}
}

func TestRingBuffer_WrapsAround(t *testing.T) {
	r := NewRingBuffer(4)
	r.AddData([]int16{1, 2, 3})
	out := make([]int16, 2)
	r.Get(out)
	r.AddData([]int16{4, 5})

	rest := make([]int16, 3)
	n := r.Get(rest)
	if n != 3 {
		t.Fatalf("expected 3 samples, got %d", n)
	}
	if rest[0] != 3 || rest[1] != 4 || rest[2] != 5 {
		t.Errorf("unexpected samples after wraparound: %v", rest)
	}
}
