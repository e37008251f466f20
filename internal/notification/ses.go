package notification

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the slice of the SES client the dispatcher uses; tests substitute
// a fake.
type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SES delivers messages through Amazon SES.
type SES struct {
	client SESAPI
	sender string
}

// NewSES builds an SES dispatcher from the default AWS config chain.
func NewSES(ctx context.Context, region, sender string) (*SES, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SES{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

// NewSESWithClient builds an SES dispatcher around an existing client.
func NewSESWithClient(client SESAPI, sender string) *SES {
	return &SES{client: client, sender: sender}
}

func (s *SES) Send(ctx context.Context, kind Kind, payload Payload) Result {
	email, err := Render(kind, payload)
	if err != nil {
		return Result{Err: err.Error()}
	}

	input := &ses.SendEmailInput{
		Source: &s.sender,
		Destination: &types.Destination{
			ToAddresses: []string{payload.RecipientEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: &email.Subject},
			Body: &types.Body{
				Text: &types.Content{Data: &email.Body},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return Result{Err: err.Error()}
	}

	result := Result{Success: true}
	if out != nil && out.MessageId != nil {
		result.ProviderMessageID = *out.MessageId
	}
	return result
}
