package bracket_queue

import "testing"

func TestCaptureTally(t *testing.T) {
	tests := []struct {
		name          string
		arrivals      []bool
		wantRemaining int
		wantFailed    int
		wantComplete  bool
		wantDoneAt    int
	}{
		{name: "all succeed", arrivals: []bool{true, true, true}, wantComplete: true, wantDoneAt: 2},
		{name: "all fail", arrivals: []bool{false, false, false}, wantFailed: 3, wantComplete: true, wantDoneAt: 2},
		{name: "one fails", arrivals: []bool{true, false, true}, wantFailed: 1, wantComplete: true, wantDoneAt: 2},
		{name: "partial", arrivals: []bool{true, false}, wantRemaining: 1, wantFailed: 1, wantDoneAt: -1},
		{name: "extra arrivals ignored", arrivals: []bool{true, true, true, false}, wantComplete: true, wantDoneAt: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := NewCaptureTally(3)
			doneAt := -1
			for i, ok := range tt.arrivals {
				if tally.Record(ok) {
					if doneAt != -1 {
						t.Fatalf("completion reported twice, at %d and %d", doneAt, i)
					}
					doneAt = i
				}
			}
			if tally.Remaining() != tt.wantRemaining {
				t.Fatalf("expected remaining %d, got %d", tt.wantRemaining, tally.Remaining())
			}
			if tally.Failed() != tt.wantFailed {
				t.Fatalf("expected failed %d, got %d", tt.wantFailed, tally.Failed())
			}
			if tally.Complete() != tt.wantComplete {
				t.Fatalf("expected complete %v", tt.wantComplete)
			}
			if doneAt != tt.wantDoneAt {
				t.Fatalf("expected completion at arrival %d, got %d", tt.wantDoneAt, doneAt)
			}
		})
	}
}
