package notifications

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"
)

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"apikey"`
	ChatIDs []int  `yaml:"chatids"`
}

type NotifyTelegram struct {
	config TelegramConfig
	client *http.Client
}

func NewTelegram(config TelegramConfig) *NotifyTelegram {
	return &NotifyTelegram{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NotifyTelegram) IsEnabled() bool {
	return n.config.Enabled
}

// Send delivers the message to every configured chat.
//
// curl -G \
//  --data-urlencode "chat_id=111112233" \
//  --data-urlencode "text=$message" \
//  https://api.telegram.org/bot${TOKEN}/sendMessage
func (n *NotifyTelegram) Send(message string) error {

	req, err := http.NewRequest("GET",
		fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.config.APIKey), nil)
	if err != nil {
		return errors.Wrap(err, "Unable to make telegram request")
	}

	req.Header.Add("Content-type", "application/x-www-form-urlencoded")

	q := req.URL.Query()
	q.Add("text", message)

	for _, chatID := range n.config.ChatIDs {

		q.Set("chat_id", strconv.Itoa(chatID))
		req.URL.RawQuery = q.Encode()

		resp, err := n.client.Do(req)
		if err != nil {
			return errors.Wrapf(err, "Unable to send telegram message to chat %d", chatID)
		}

		body, err := ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return errors.Wrap(err, "Unable to read telegram message response")
		}

		log.WithField("Resp", string(body)).Debug("Telegram Reply")
	}

	return nil
}
