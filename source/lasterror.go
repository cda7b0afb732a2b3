package source

import "sync"

// ErrorSlot holds a source's last error message. Embed it to satisfy the
// LastError/SetLastError half of core.Source.
type ErrorSlot struct {
	mu  sync.RWMutex
	msg string
}

func (s *ErrorSlot) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.msg
}

func (s *ErrorSlot) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg = msg
}
