package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/models"

	"gopkg.in/gomail.v2"
)

var ErrEmptyRecipient = errors.New("message has no recipient")

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (m *Mailer) Send(msg models.Message) error {
	const op = "mailer.Send"

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := dialer.DialAndSend(m.compose(msg)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Mailer) compose(msg models.Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("To", msg.Email)
	gm.SetHeader("From", m.Username)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	return gm
}

type Sender interface {
	Send(msg models.Message) error
}

// Handler decodes queue payloads and delivers them with s. Malformed payloads
// are reported as errors so the consumer drops them.
func Handler(log *slog.Logger, s Sender) func(body []byte) error {
	return func(body []byte) error {
		const op = "mailer.Handler"

		log := log.With(slog.String("op", op))

		var msg models.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error("failed to unmarshal message", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		if msg.Email == "" {
			log.Warn("message without recipient", slog.String("purpose", msg.Purpose))
			return fmt.Errorf("%s: %w", op, ErrEmptyRecipient)
		}

		if err := s.Send(msg); err != nil {
			log.Error("failed to send message", sl.Err(err))
			return err
		}

		log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

		return nil
	}
}
