package notifications

import (
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"
)

type EmailConfig struct {
	Enabled bool     `yaml:"enabled"`
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	From    string   `yaml:"from"`
	To      []string `yaml:"to"`
}

type NotifyEmail struct {
	config EmailConfig
}

func NewEmail(config EmailConfig) *NotifyEmail {
	return &NotifyEmail{config: config}
}

func (n *NotifyEmail) IsEnabled() bool {
	return n.config.Enabled
}

func (n *NotifyEmail) Send(message string) error {

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	body := fmt.Sprintf("From: %s\r\nSubject: BaconPay Alert\r\n\r\n%s\r\n", n.config.From, message)

	if err := smtp.SendMail(addr, nil, n.config.From, n.config.To, []byte(body)); err != nil {
		return errors.Wrap(err, "Unable to send notification email")
	}

	return nil
}
