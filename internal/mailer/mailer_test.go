package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"meal_planner/internal/lib/notification"
	"meal_planner/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []models.Message
	err  error
}

func (f *fakeSender) Send(msg models.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestHandler(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	welcome := notification.Welcome("alice@example.com", "Alice")
	body, err := json.Marshal(welcome)
	require.NoError(t, err)

	t.Run("delivers", func(t *testing.T) {
		s := &fakeSender{}
		require.NoError(t, Handler(log, s)(body))
		require.Len(t, s.sent, 1)
		assert.Equal(t, welcome, s.sent[0])
	})

	t.Run("malformed payload", func(t *testing.T) {
		s := &fakeSender{}
		require.Error(t, Handler(log, s)([]byte("{")))
		assert.Empty(t, s.sent)
	})

	t.Run("no recipient", func(t *testing.T) {
		s := &fakeSender{}
		err := Handler(log, s)([]byte(`{"subject":"hi"}`))
		require.ErrorIs(t, err, ErrEmptyRecipient)
	})

	t.Run("send failure", func(t *testing.T) {
		boom := errors.New("smtp down")
		err := Handler(log, &fakeSender{err: boom})(body)
		require.ErrorIs(t, err, boom)
	})
}

func TestCompose(t *testing.T) {
	m := &Mailer{Username: "noreply@example.com"}

	var buf bytes.Buffer
	_, err := m.compose(models.Message{
		Email:   "bob@example.com",
		Subject: "Hello",
		Body:    "menu is ready",
	}).WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "To: bob@example.com")
	assert.Contains(t, out, "From: noreply@example.com")
	assert.Contains(t, out, "Subject: Hello")
	assert.Contains(t, out, "menu is ready")
}
