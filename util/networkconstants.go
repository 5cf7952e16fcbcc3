package util

import (
	"fmt"
	"strings"
)

const (
	NETWORK_MAINNET     = "mainnet"
	NETWORK_GRANADANET  = "granadanet"
	NETWORK_HANGZHOUNET = "hangzhounet"
)

type NetworkConstants struct {
	TimeBetweenBlocks int
	BlocksPerCycle    int

	// Rewards earned in cycle C are frozen until the end of
	// cycle C + FreezeCycles; only then are they payable.
	FreezeCycles int
}

// For updating, mainnet example
// curl -Ss https://mainnet-tezos.giganode.io/chains/main/blocks/head/context/constants | jq -r '[ (.minimal_block_delay|tonumber), .blocks_per_cycle, .preserved_cycles] | @csv'

func GetNetworkConstants(network string) (*NetworkConstants, error) {

	switch network {
	case NETWORK_MAINNET:
		return &NetworkConstants{30, 8192, 5}, nil
	case NETWORK_GRANADANET:
		return &NetworkConstants{15, 4096, 3}, nil
	case NETWORK_HANGZHOUNET:
		return &NetworkConstants{15, 4096, 3}, nil
	}

	// Unknown network
	return nil, fmt.Errorf("No such network '%s' exists", network)
}

func IsValidNetwork(maybeNetwork string) bool {
	return maybeNetwork == NETWORK_MAINNET || maybeNetwork == NETWORK_GRANADANET || maybeNetwork == NETWORK_HANGZHOUNET
}

func AvailableNetworks() string {
	return strings.Join([]string{NETWORK_MAINNET, NETWORK_GRANADANET, NETWORK_HANGZHOUNET}, ",")
}
