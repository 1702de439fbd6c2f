package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// A second registration must tolerate AlreadyRegisteredError
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestObserversCollect(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ObserveEventGenerated("api")
	ObserveEventFlagged(true)
	ObserveAnalysis(OutcomeSuccess)
	ObserveTicketProcessed("mock")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families collected")
	}

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"deskwatch_events_generated_total",
		"deskwatch_events_flagged_total",
		"deskwatch_analyses_total",
		"deskwatch_tickets_processed_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not collected", want)
		}
	}
}
