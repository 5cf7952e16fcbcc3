package notifications

import (
	log "github.com/sirupsen/logrus"
)

// Notifier pushes a short operator-facing message through one channel.
type Notifier interface {
	Send(message string) error
	IsEnabled() bool
}

// Config holds the notifier settings from the business configuration file.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

// Handler fans a message out to every enabled notifier. Failed transfers
// need an operator; this is how they find out without tailing logs.
type Handler struct {
	notifiers map[string]Notifier
}

func NewHandler(cfg Config) *Handler {

	h := &Handler{
		notifiers: make(map[string]Notifier, 2),
	}

	h.notifiers["telegram"] = NewTelegram(cfg.Telegram)
	h.notifiers["email"] = NewEmail(cfg.Email)

	return h
}

// Send is best-effort; a notifier failure is logged and never interrupts
// the payment pipeline.
func (h *Handler) Send(message string) {

	for name, n := range h.notifiers {
		if !n.IsEnabled() {
			continue
		}

		if err := n.Send(message); err != nil {
			log.WithError(err).WithField("Notifier", name).Error("Unable to send notification")
		}
	}
}
