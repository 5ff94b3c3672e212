package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the part of the Twilio REST client used to send SMS.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers alerts as SMS through Twilio.
type TwilioSender struct {
	api  messageCreator
	from string
}

// NewTwilioSender creates a sender authenticated with the account
// credentials, sending from the given number.
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, from: from}
}

// Name implements Sender.
func (s *TwilioSender) Name() string { return "twilio" }

// Send implements Sender. The Twilio client has no context support, so ctx
// is only checked before the request.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio: send to %s: %w", to, err)
	}
	if resp == nil || resp.Sid == nil {
		return "", fmt.Errorf("twilio: send to %s: %w: no message sid", to, ErrProviderRejected)
	}
	return *resp.Sid, nil
}
