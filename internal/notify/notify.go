// Package notify defines the outbound notification contract. Delivery
// transports (SMTP, SMS gateways) live outside this service; from the
// ledger's perspective every send is fire-and-forget and a failure is
// logged, never propagated into a committed transaction.
package notify

import (
	"context"

	"loyalty-promo-backend/internal/common/logger"
)

type Channel string

const (
	ChannelPhone Channel = "phone"
	ChannelEmail Channel = "email"
)

type Notifier interface {
	SendOTP(ctx context.Context, channel Channel, contact, code string) error
	SendUniqueIDNotice(ctx context.Context, channel Channel, contact, uniqueID string) error
	SendCredentials(ctx context.Context, email, username, password string) error
}

// LogNotifier writes notifications to the log instead of delivering
// them. Used in development and as a stand-in until a transport is
// wired up.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendOTP(_ context.Context, channel Channel, contact, code string) error {
	logger.Info().
		Str("channel", string(channel)).
		Str("contact", contact).
		Str("code", code).
		Msg("OTP dispatch")
	return nil
}

func (n *LogNotifier) SendUniqueIDNotice(_ context.Context, channel Channel, contact, uniqueID string) error {
	logger.Info().
		Str("channel", string(channel)).
		Str("contact", contact).
		Str("unique_id", uniqueID).
		Msg("unique id notice dispatch")
	return nil
}

func (n *LogNotifier) SendCredentials(_ context.Context, email, username, _ string) error {
	logger.Info().
		Str("email", email).
		Str("username", username).
		Msg("credentials dispatch")
	return nil
}
