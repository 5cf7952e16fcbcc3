package distributor

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"
)

// TransferFunc moves amount mutez from the payout key to address. The
// only success signal is a nil error.
type TransferFunc func(amount int64, keyAlias, address string) error

// RunTransferCommand builds a TransferFunc around an external command
// template. The template may carry a %network% token, bound once here,
// plus {amount}, {key} and {address} tokens bound per payment. {amount}
// expands to tez with six decimals, the unit client wallets expect.
func RunTransferCommand(template, network, keyAlias string) TransferFunc {

	command := strings.ReplaceAll(template, "%network%", network)

	return func(amount int64, key, address string) error {

		if key == "" {
			key = keyAlias
		}

		r := strings.NewReplacer(
			"{amount}", fmt.Sprintf("%.6f", float64(amount)/1e6),
			"{key}", key,
			"{address}", address,
		)
		line := r.Replace(command)

		log.WithField("Command", line).Debug("Running transfer")

		out, err := exec.Command("/bin/sh", "-c", line).CombinedOutput()
		if err != nil {
			return errors.Wrapf(err, "transfer command failed: %s", strings.TrimSpace(string(out)))
		}

		log.WithField("Output", strings.TrimSpace(string(out))).Debug("Transfer command done")

		return nil
	}
}
