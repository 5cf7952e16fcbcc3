package util

import "testing"

func TestGetNetworkConstants(t *testing.T) {

	mainnet, err := GetNetworkConstants(NETWORK_MAINNET)
	if err != nil {
		t.Fatalf("mainnet: %v", err)
	}

	if mainnet.BlocksPerCycle != 8192 || mainnet.FreezeCycles != 5 {
		t.Errorf("Unexpected mainnet constants: %+v", mainnet)
	}

	if _, err := GetNetworkConstants("florencenet"); err == nil {
		t.Error("Expected error for unknown network")
	}
}

func TestIsValidNetwork(t *testing.T) {

	if !IsValidNetwork(NETWORK_GRANADANET) {
		t.Error("granadanet should be valid")
	}

	if IsValidNetwork("mainnet2") {
		t.Error("mainnet2 should not be valid")
	}
}
