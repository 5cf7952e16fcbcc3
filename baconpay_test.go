package main

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

const (
	bakerAddr     = "tz1MTZEJE7YH3wzo8YYiAGd8sgiCTxNRHczR"
	founderAddr   = "tz1KqTpEZ7Yob7QbPE4Hy4Wo8fHG8LhKxZSx"
	ownerAddr     = "tz3RDC3Jdn4j15J7bBHZd29EUee9gVB1CxD9"
	supporterAddr = "tz1Ke2h7sDdakHJQh8WX4Z372du1KChsksyU"
)

func validConfig() *BusinessConfig {
	return &BusinessConfig{
		BakingAddress:   bakerAddr,
		StandardFee:     0.05,
		SpecialFees:     map[string]float64{supporterAddr: 0.01},
		Supporters:      []string{supporterAddr},
		Founders:        map[string]float64{founderAddr: 0.7, ownerAddr: 0.3},
		Owners:          map[string]float64{ownerAddr: 1.0},
		TransferCommand: "tezos-client transfer {amount} from {key} to {address}",
	}
}

func TestValidateConfig(t *testing.T) {

	cases := []struct {
		name    string
		mutate  func(*BusinessConfig)
		wantErr bool
	}{
		{"valid", func(c *BusinessConfig) {}, false},
		{"no shares at all", func(c *BusinessConfig) {
			c.Founders = nil
			c.Owners = nil
		}, false},
		{"empty baker", func(c *BusinessConfig) { c.BakingAddress = "" }, true},
		{"bad baker checksum", func(c *BusinessConfig) {
			c.BakingAddress = "tz1MTZEJE7YH3wzo8YYiAGd8sgiCTxNRHczS"
		}, true},
		{"originated baker", func(c *BusinessConfig) {
			c.BakingAddress = "KT1" + bakerAddr[3:]
		}, true},
		{"fee above one", func(c *BusinessConfig) { c.StandardFee = 1.5 }, true},
		{"negative fee", func(c *BusinessConfig) { c.StandardFee = -0.1 }, true},
		{"special fee above one", func(c *BusinessConfig) {
			c.SpecialFees[supporterAddr] = 2
		}, true},
		{"founders do not sum to one", func(c *BusinessConfig) {
			c.Founders = map[string]float64{founderAddr: 0.5}
		}, true},
		{"owners do not sum to one", func(c *BusinessConfig) {
			c.Owners = map[string]float64{ownerAddr: 0.9}
		}, true},
		{"bogus supporter", func(c *BusinessConfig) {
			c.Supporters = []string{"tz1BogusAddress"}
		}, true},
		{"missing transfer command", func(c *BusinessConfig) { c.TransferCommand = "" }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {

			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected validation error, got none")
			}

			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadBusinessConfig(t *testing.T) {

	raw := `
baking_address: ` + bakerAddr + `
standard_fee: 0.05
supporters:
  - ` + supporterAddr + `
founders_map:
  ` + founderAddr + `: 1.0
owners_map:
  ` + ownerAddr + `: 1.0
transfer_command: "tezos-client transfer {amount} from {key} to {address}"
notifications:
  telegram:
    enabled: false
`

	path := filepath.Join(t.TempDir(), "baconpay.yaml")
	if err := ioutil.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadBusinessConfig(path)
	if err != nil {
		t.Fatalf("LoadBusinessConfig: %v", err)
	}

	if cfg.BakingAddress != bakerAddr {
		t.Errorf("baking_address = %q; want %q", cfg.BakingAddress, bakerAddr)
	}

	if cfg.StandardFee != 0.05 {
		t.Errorf("standard_fee = %f; want 0.05", cfg.StandardFee)
	}

	if got := cfg.Founders[founderAddr]; got != 1.0 {
		t.Errorf("founders_map share = %f; want 1.0", got)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Loaded config failed validation: %v", err)
	}

	if cfg.Notifications.Telegram.Enabled {
		t.Error("telegram should be disabled")
	}
}

func TestLoadBusinessConfigMissingFile(t *testing.T) {

	if _, err := LoadBusinessConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}
