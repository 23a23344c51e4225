package model

import "testing"

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	allowed := map[RequestState][]RequestState{
		StateRequested: {StateAllocated, StateCancelled},
		StateAllocated: {StateOccupied, StateCancelled},
		StateOccupied:  {StateReleased},
		StateReleased:  {},
		StateCancelled: {},
	}

	for _, from := range States() {
		for _, to := range States() {
			want := false
			for _, dst := range allowed[from] {
				if dst == to {
					want = true
				}
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransitionTableRejectsReentrant(t *testing.T) {
	t.Parallel()

	for _, s := range States() {
		if CanTransition(s, s) {
			t.Errorf("re-entrant transition %s -> %s must be rejected", s, s)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	t.Parallel()

	terminal := map[RequestState]bool{
		StateReleased:  true,
		StateCancelled: true,
	}
	for _, s := range States() {
		if got := s.IsTerminal(); got != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, terminal[s])
		}
	}

	if RequestState("BOGUS").IsTerminal() {
		t.Error("unknown state must not report terminal")
	}
}

func TestRequestStateValidate(t *testing.T) {
	t.Parallel()

	for _, s := range States() {
		if err := s.Validate(); err != nil {
			t.Errorf("%s.Validate() = %v, want nil", s, err)
		}
	}
	if err := RequestState("PARKED").Validate(); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestAllowedFromReturnsCopy(t *testing.T) {
	t.Parallel()

	dsts := AllowedFrom(StateRequested)
	if len(dsts) != 2 {
		t.Fatalf("expected 2 destinations from REQUESTED, got %d", len(dsts))
	}
	dsts[0] = StateReleased
	if CanTransition(StateRequested, StateReleased) {
		t.Error("mutating AllowedFrom result must not change the table")
	}
}
