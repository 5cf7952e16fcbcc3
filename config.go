package main

import (
	"io/ioutil"
	"strings"

	"github.com/Messer4/base58check"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"baconpay/notifications"
	"baconpay/payout"
)

// BusinessConfig is the operator-maintained side of the configuration:
// who the baker is, who gets paid what share, and how transfers are
// executed. Runtime knobs (network, directories, run mode) stay on the
// command line.
type BusinessConfig struct {
	BakingAddress string `yaml:"baking_address"`

	StandardFee float64            `yaml:"standard_fee"`
	SpecialFees map[string]float64 `yaml:"special_fees"`

	Supporters []string           `yaml:"supporters"`
	Founders   map[string]float64 `yaml:"founders_map"`
	Owners     map[string]float64 `yaml:"owners_map"`

	// Command template; {amount}, {key}, {address} and %network% tokens
	// are substituted at execution time
	TransferCommand string `yaml:"transfer_command"`

	Notifications notifications.Config `yaml:"notifications"`
}

func LoadBusinessConfig(path string) (*BusinessConfig, error) {

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read config %s", path)
	}

	var cfg BusinessConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "Unable to parse config %s", path)
	}

	return &cfg, nil
}

// Validate rejects configurations that would misdirect or miscompute
// payments. Everything here is fatal; a distributor must not start on a
// half-valid share table.
func (c *BusinessConfig) Validate() error {

	if err := checkAddress(c.BakingAddress); err != nil {
		return errors.Wrap(err, "Invalid baking_address")
	}

	// Only implicit accounts can register as delegates
	if !strings.HasPrefix(c.BakingAddress, "tz") {
		return errors.Errorf("baking_address %s must be an implicit (tz) account", c.BakingAddress)
	}

	if c.StandardFee < 0 || c.StandardFee > 1 {
		return errors.Errorf("standard_fee %f must be between 0 and 1", c.StandardFee)
	}

	for addr, fee := range c.SpecialFees {
		if err := checkAddress(addr); err != nil {
			return errors.Wrap(err, "Invalid special_fees address")
		}

		if fee < 0 || fee > 1 {
			return errors.Errorf("special fee %f for %s must be between 0 and 1", fee, addr)
		}
	}

	for _, addr := range c.Supporters {
		if err := checkAddress(addr); err != nil {
			return errors.Wrap(err, "Invalid supporters address")
		}
	}

	if err := payout.ValidateShareMap(c.Founders, "founders_map"); err != nil {
		return err
	}

	if err := payout.ValidateShareMap(c.Owners, "owners_map"); err != nil {
		return err
	}

	for addr := range c.Founders {
		if err := checkAddress(addr); err != nil {
			return errors.Wrap(err, "Invalid founders_map address")
		}
	}

	for addr := range c.Owners {
		if err := checkAddress(addr); err != nil {
			return errors.Wrap(err, "Invalid owners_map address")
		}
	}

	if c.TransferCommand == "" {
		return errors.New("transfer_command is required")
	}

	return nil
}

// checkAddress verifies the base58 checksum and the account prefix.
// Payment recipients may be implicit (tz) or originated (KT1) accounts.
func checkAddress(address string) error {

	if address == "" {
		return errors.New("address is empty")
	}

	if _, err := base58check.Decode(address); err != nil {
		return errors.Wrapf(err, "Address %s failed checksum", address)
	}

	switch {
	case strings.HasPrefix(address, "tz1"),
		strings.HasPrefix(address, "tz2"),
		strings.HasPrefix(address, "tz3"),
		strings.HasPrefix(address, "KT1"):
		return nil
	}

	return errors.Errorf("Address %s has unknown prefix", address)
}
