// Package subscriptions links Telegram channel joins back to click events.
package subscriptions

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actions recorded for a subscription event.
const (
	ActionSubscribe = "subscribe"
)

// SubscriptionEvent is one confirmed channel join, correlated with the click
// that led to it via the session token.
type SubscriptionEvent struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TelegramUserID   int64              `bson:"telegramUserId" json:"telegramUserId"`
	TelegramUsername string             `bson:"telegramUsername,omitempty" json:"telegramUsername,omitempty"`
	SessionToken     string             `bson:"sessionToken" json:"sessionToken"`
	Action           string             `bson:"action" json:"action"`
	Timestamp        time.Time          `bson:"timestamp" json:"timestamp"`
}
