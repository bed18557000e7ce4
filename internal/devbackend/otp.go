package devbackend

import (
	"fmt"
	"log/slog"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// LogSender is the dev-mode OTPSender: it logs the code instead of sending
// an SMS, the way the original backend printed it to the terminal.
type LogSender struct {
	Log *slog.Logger
}

// Send implements OTPSender.
func (s *LogSender) Send(phone, code string) error {
	s.Log.Info("DEV MODE OTP",
		slog.String("phone", phone),
		slog.String("code", code),
	)
	return nil
}

// TwilioSender delivers codes by SMS through the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender returns a sender authenticated with the given account
// credentials, sending from the given number.
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: from}
}

// Send implements OTPSender.
func (s *TwilioSender) Send(phone, code string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf("Your SkillWallet login code is %s", code))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}
