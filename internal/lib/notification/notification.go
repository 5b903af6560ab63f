package notification

import (
	"context"
	"fmt"

	"meal_planner/internal/models"
)

const PurposeWelcome = "welcome"

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// Welcome builds the message sent to a freshly registered user.
func Welcome(email, name string) models.Message {
	return models.Message{
		Email:   email,
		Subject: "Welcome to Meal Planner",
		Body: fmt.Sprintf(
			"Hi %s,\n\nyour account is ready. Add a few dishes, invite your guests and let them rank what they like.\n",
			name,
		),
		Purpose: PurposeWelcome,
	}
}
