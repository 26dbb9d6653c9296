package conversation

import (
	"sync"
	"testing"
)

const (
	stepText Step = iota
	stepIntensity
)

func TestRegistry(t *testing.T) {
	t.Run("Register then IsActive returns true for that flow", func(t *testing.T) {
		r := NewRegistry()
		r.Register(42, FlowImpression, stepText)
		if !r.IsActive(42, FlowImpression) {
			t.Error("expected impression flow to be active")
		}
		if r.IsActive(42, FlowSurveyCreate) {
			t.Error("expected other flows to be inactive")
		}
	})

	t.Run("Register overwrites: last writer wins, no merge", func(t *testing.T) {
		r := NewRegistry()
		r.Register(7, FlowSurveyCreate, 2)
		r.Register(7, FlowImpression, stepText)
		if r.IsActive(7, FlowSurveyCreate) {
			t.Error("previous flow should be gone after re-register")
		}
		if !r.IsActive(7, FlowImpression) {
			t.Error("new flow should be active")
		}
	})

	t.Run("Register with a new step advances without losing the flow", func(t *testing.T) {
		r := NewRegistry()
		r.Register(1, FlowImpression, stepText)
		first, _ := r.Active(1)
		r.Register(1, FlowImpression, stepIntensity)
		st, ok := r.Active(1)
		if !ok || st.Flow != FlowImpression || st.Step != stepIntensity {
			t.Fatalf("expected impression flow at step %d, got %+v (ok=%v)", stepIntensity, st, ok)
		}
		if !st.StartedAt.Equal(first.StartedAt) {
			t.Error("advancing a step should keep the original StartedAt")
		}
	})

	t.Run("End removes only a matching flow", func(t *testing.T) {
		r := NewRegistry()
		r.Register(5, FlowEntry, 0)

		r.End(5, FlowSurveyFill) // mismatch: must be a no-op
		if !r.IsActive(5, FlowEntry) {
			t.Error("mismatched End must not remove the active flow")
		}

		r.End(5, FlowEntry)
		if r.IsActive(5, FlowEntry) {
			t.Error("matching End must remove the state")
		}
	})

	t.Run("EndAll removes whatever flow was active", func(t *testing.T) {
		r := NewRegistry()
		r.Register(9, FlowSurveyDelete, 1)
		r.EndAll(9)
		if _, ok := r.Active(9); ok {
			t.Error("expected no active state after EndAll")
		}
	})

	t.Run("End and EndAll on an idle chat are harmless", func(t *testing.T) {
		r := NewRegistry()
		r.End(123, FlowEntry)
		r.EndAll(123)
		if _, ok := r.Active(123); ok {
			t.Error("idle chat should stay idle")
		}
	})

	t.Run("cancel mid-flow then restart behaves like a fresh start", func(t *testing.T) {
		r := NewRegistry()
		r.Register(42, FlowImpression, stepText)
		r.Register(42, FlowImpression, stepIntensity)
		r.End(42, FlowImpression) // cancel
		if r.IsActive(42, FlowImpression) {
			t.Fatal("cancelled flow should not be active")
		}
		r.Register(42, FlowImpression, stepText)
		st, ok := r.Active(42)
		if !ok || st.Flow != FlowImpression || st.Step != stepText {
			t.Errorf("fresh start after cancel should look like the first start, got %+v", st)
		}
	})

	t.Run("unrelated command entry point switches flows cleanly", func(t *testing.T) {
		r := NewRegistry()
		r.Register(7, FlowSurveyCreate, 1) // mid create_survey at the description step

		// /impression entry point: EndAll then Register.
		r.EndAll(7)
		r.Register(7, FlowImpression, stepText)

		if r.IsActive(7, FlowSurveyCreate) {
			t.Error("create_survey should be discarded")
		}
		if !r.IsActive(7, FlowImpression) {
			t.Error("impression should be active")
		}
	})

	t.Run("states are independent per chat", func(t *testing.T) {
		r := NewRegistry()
		r.Register(1, FlowEntry, 0)
		r.Register(2, FlowImpression, 0)
		r.EndAll(1)
		if !r.IsActive(2, FlowImpression) {
			t.Error("ending chat 1 must not touch chat 2")
		}
	})
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			r.Register(n%8, FlowImpression, Step(n))
			r.IsActive(n%8, FlowImpression)
			r.End(n%8, FlowImpression)
			r.EndAll(n % 8)
		}(int64(i))
	}
	wg.Wait()
	for chat := int64(0); chat < 8; chat++ {
		r.Register(chat, FlowEntry, 0)
		if !r.IsActive(chat, FlowEntry) {
			t.Fatalf("registry unusable for chat %d after concurrent churn", chat)
		}
	}
}
