package device

// IterationState is the Newton iterate snapshot of one SOI instance: limited node
// voltages by derived row and the limited controls.
type IterationState struct {
	Nodes    []float64
	Controls [NumControls]float64
}

func newIterationState(n int) IterationState {
	return IterationState{Nodes: make([]float64, n)}
}

func (s *IterationState) copyFrom(o *IterationState) {
	copy(s.Nodes, o.Nodes)
	s.Controls = o.Controls
}

// iterateStore holds the accepted iterate (curr) and the one being built (next).
type iterateStore struct {
	curr, next IterationState
}

// previous is what limiting is measured against: the accepted state on the first
// iteration of a solve, the last iterate afterwards.
func (s *iterateStore) previous(iteration int) *IterationState {
	if iteration == 0 {
		return &s.curr
	}
	return &s.next
}

func (s *iterateStore) accept() {
	s.curr.copyFrom(&s.next)
}
