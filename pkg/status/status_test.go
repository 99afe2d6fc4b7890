package status

import "testing"

// The boundary code values are frozen; renumbering any of them breaks
// callers that persist codes. This table is the contract.
func TestCodeValuesFrozen(t *testing.T) {
	frozen := []struct {
		status Status
		value  int8
	}{
		{StatusAccepted, 0},
		{StatusPayloadTooLarge, -1},
		{StatusInvalidDestination, -2},
		{StatusNoRoute, -3},
		{StatusTimeout, -4},
		{StatusTransient, -5},
		{StatusPermanent, -6},
		{StatusInternal, -7},
	}

	for _, f := range frozen {
		if int8(f.status) != f.value {
			t.Errorf("%s = %d; frozen contract says %d", f.status, int8(f.status), f.value)
		}
	}
}

func TestMapCoversAllOutcomes(t *testing.T) {
	seen := make(map[Status]Outcome)
	for o := Outcome(0); o < outcomeCount; o++ {
		s := Map(o)
		if o != OutcomeInternal && s == StatusInternal {
			t.Errorf("outcome %s maps to the internal fallback; add an explicit case", o)
		}
		if prev, dup := seen[s]; dup {
			t.Errorf("outcomes %s and %s share code %d", prev, o, int8(s))
		}
		seen[s] = o
	}
}

func TestMapSuccessIsZero(t *testing.T) {
	if Map(OutcomeAccepted) != 0 {
		t.Errorf("Map(OutcomeAccepted) = %d; want 0", int8(Map(OutcomeAccepted)))
	}
}

func TestMapOutOfRange(t *testing.T) {
	if Map(outcomeCount+5) != StatusInternal {
		t.Error("out-of-range outcome did not map to StatusInternal")
	}
}

func TestRetryable(t *testing.T) {
	testCases := []struct {
		status Status
		want   bool
	}{
		{StatusAccepted, false},
		{StatusPayloadTooLarge, false},
		{StatusInvalidDestination, false},
		{StatusNoRoute, true},
		{StatusTimeout, true},
		{StatusTransient, true},
		{StatusPermanent, false},
		{StatusInternal, false},
	}

	for _, tc := range testCases {
		if got := tc.status.Retryable(); got != tc.want {
			t.Errorf("%s.Retryable() = %v; want %v", tc.status, got, tc.want)
		}
	}
}
