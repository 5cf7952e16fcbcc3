package storage

import (
	"encoding/json"
	"testing"
)

func TestSaveAndGetPayouts(t *testing.T) {

	s, err := InitStorage(t.TempDir(), "granadanet")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	summary := []byte(`{"c":42,"tr":1000}`)
	if err := s.SaveCycleSummary(42, summary); err != nil {
		t.Fatal(err)
	}

	record := []byte(`{"a":"tz1AddrA","p":600}`)
	if err := s.SavePaymentRecord(42, "tz1AddrA", record); err != nil {
		t.Fatal(err)
	}

	summaries, err := s.GetPayoutsSummaries()
	if err != nil {
		t.Fatal(err)
	}

	if string(summaries[42]) != string(summary) {
		t.Fatalf("unexpected summary for cycle 42: %s", summaries[42])
	}

	payouts, err := s.GetCyclePayouts(42)
	if err != nil {
		t.Fatal(err)
	}

	if len(payouts) != 1 {
		t.Fatalf("expected 1 payment record, got %d", len(payouts))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payouts["tz1AddrA"], &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded["a"] != "tz1AddrA" {
		t.Fatalf("unexpected payment record: %s", payouts["tz1AddrA"])
	}
}

func TestGetCyclePayoutsMissingCycle(t *testing.T) {

	s, err := InitStorage(t.TempDir(), "granadanet")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.GetCyclePayouts(99); err == nil {
		t.Fatal("expected error for unknown cycle")
	}
}
