package tzclient

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/bakingbacon/go-tezos/v4/rpc"

	"baconpay/util"
)

// Client wraps the Tezos RPC connection with a primary/backup pair. All
// reward queries go through Current; callers can flip to the backup node
// when the primary misbehaves.
type Client struct {
	Current *rpc.Client
	Primary *rpc.Client
	Backup  *rpc.Client

	IsPrimary bool
	lock      sync.Mutex

	baker     string
	constants *util.NetworkConstants
}

func New(primaryURL, backupURL, baker string, constants *util.NetworkConstants) (*Client, error) {

	primary, err := rpc.New(primaryURL)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not connect to RPC server %s", primaryURL)
	}

	c := &Client{
		Current:   primary,
		Primary:   primary,
		IsPrimary: true,
		baker:     baker,
		constants: constants,
	}

	if backupURL != "" {
		backup, err := rpc.New(backupURL)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not connect to backup RPC server %s", backupURL)
		}
		c.Backup = backup
	}

	return c, nil
}

func (c *Client) UseBackup() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.Backup != nil {
		c.Current = c.Backup
		c.IsPrimary = false
	}
}

func (c *Client) UsePrimary() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.Current = c.Primary
	c.IsPrimary = true
}
