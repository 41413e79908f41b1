package rustgen

import "github.com/hashicorp/go-set/v3"

// ScopeTracker records which bindings are visible in the Rust block being
// emitted. The outermost frame is the function body and is never exited.
type ScopeTracker struct {
	frames []*set.Set[string]
}

func NewScopeTracker() *ScopeTracker {
	return &ScopeTracker{frames: []*set.Set[string]{set.New[string](8)}}
}

// Enter opens a nested block.
func (s *ScopeTracker) Enter() {
	s.frames = append(s.frames, set.New[string](4))
}

// Exit closes the innermost block, forgetting its bindings.
func (s *ScopeTracker) Exit() {
	if len(s.frames) == 1 {
		panic("rustgen: exit of function scope")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Declare binds name in the innermost block.
func (s *ScopeTracker) Declare(name string) {
	s.frames[len(s.frames)-1].Insert(name)
}

// IsDeclared looks name up through all open blocks.
func (s *ScopeTracker) IsDeclared(name string) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Contains(name) {
			return true
		}
	}
	return false
}

// Depth is the number of open blocks, 1 at function level.
func (s *ScopeTracker) Depth() int { return len(s.frames) }
