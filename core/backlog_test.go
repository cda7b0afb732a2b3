package core

import "testing"

func TestBacklog_FIFO(t *testing.T) {
	b := newBacklog()
	jobs := []*Job{
		NewJob(1, JobTypeFeedGet, nil),
		NewJob(1, JobTypeFeedRefresh, nil),
		NewJob(1, JobTypeFeedRefresh, nil),
	}
	for _, j := range jobs {
		b.Push(j)
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if n := b.CountOfType(JobTypeFeedRefresh); n != 2 {
		t.Errorf("CountOfType = %d, want 2", n)
	}

	for i, want := range jobs {
		got, ok := b.Pop()
		if !ok || got != want {
			t.Fatalf("Pop #%d returned wrong job", i)
		}
	}
	if _, ok := b.Pop(); ok {
		t.Error("Pop on empty backlog should fail")
	}
}

func TestBacklog_PushFront(t *testing.T) {
	b := newBacklog()
	first := NewJob(1, JobTypeFeedGet, nil)
	second := NewJob(1, JobTypeFeedGet, nil)
	b.Push(second)
	b.PushFront(first)

	if got, _ := b.Pop(); got != first {
		t.Error("PushFront job should come out first")
	}
}

// TestBacklog_Compaction verifies the backing array shrinks after a large burst drains
func TestBacklog_Compaction(t *testing.T) {
	b := newBacklog()
	for i := 0; i < 1000; i++ {
		b.Push(NewJob(1, JobTypeFeedRefresh, nil))
	}
	for i := 0; i < 990; i++ {
		b.Pop()
	}

	if b.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", b.Len())
	}
	if c := cap(b.jobs); c >= 1000 {
		t.Errorf("cap = %d, expected compaction", c)
	}
}

func TestBacklog_Clear(t *testing.T) {
	b := newBacklog()
	b.Push(NewJob(1, JobTypeFeedGet, nil))
	b.Push(NewJob(1, JobTypeFeedGet, nil))

	if n := b.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if b.Len() != 0 {
		t.Errorf("Len() after Clear = %d", b.Len())
	}
}
