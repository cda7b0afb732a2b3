package source

import (
	"context"
	"errors"
	"testing"

	"github.com/Swind/go-feed-agent/core"
)

// stubSource satisfies Source through the embedded nil interface; only the
// identity methods are ever called by the registry.
type stubSource struct {
	Source
	ErrorSlot
	id uint64
}

func (s *stubSource) ID() uint64 { return s.id }

func (s *stubSource) LastError() string { return s.ErrorSlot.LastError() }

func (s *stubSource) SetLastError(msg string) { s.ErrorSlot.SetLastError(msg) }

func TestRegistry_GetSource(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubSource{id: 2})
	r.Register(&stubSource{id: 1})

	src, err := r.GetSource(context.Background(), 2)
	if err != nil || src.ID() != 2 {
		t.Fatalf("GetSource(2) = %v, %v", src, err)
	}

	_, err = r.GetSource(context.Background(), 9)
	if !errors.Is(err, core.ErrSourceNotFound) {
		t.Errorf("GetSource(9) error = %v, want ErrSourceNotFound", err)
	}

	if ids := r.SourceIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("SourceIDs() = %v, want [1 2]", ids)
	}

	r.Remove(2)
	if _, ok := r.Lookup(2); ok {
		t.Error("source 2 still registered after Remove")
	}
}

func TestRegistry_Factory(t *testing.T) {
	r := NewRegistry()
	r.RegisterType("stub", func(cfg Config) (Source, error) {
		if cfg.Params["fail"] == "yes" {
			return nil, errors.New("bad params")
		}
		return &stubSource{id: cfg.ID}, nil
	})

	src, err := r.New(Config{ID: 5, Type: "stub"})
	if err != nil || src.ID() != 5 {
		t.Fatalf("New = %v, %v", src, err)
	}
	if _, ok := r.Lookup(5); !ok {
		t.Error("New did not register the source")
	}

	if _, err := r.New(Config{ID: 6, Type: "missing"}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := r.New(Config{ID: 7, Type: "stub", Params: map[string]string{"fail": "yes"}}); err == nil {
		t.Error("expected factory error to propagate")
	}
}

func TestErrorSlot(t *testing.T) {
	var s ErrorSlot
	s.SetLastError("boom")
	if s.LastError() != "boom" {
		t.Errorf("LastError() = %q", s.LastError())
	}
}
