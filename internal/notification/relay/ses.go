package relay

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// defaultConfigurationSet means "send without a configuration set".
const defaultConfigurationSet = "default"

// SESSender is the part of the SES client used by SESRelay.
type SESSender interface {
	SendTemplatedEmail(ctx context.Context, input *ses.SendTemplatedEmailInput) (*ses.SendTemplatedEmailOutput, error)
}

// SESRelay maps relay requests onto SES templated email. TemplateID names the
// SES template and ServiceID the configuration set.
type SESRelay struct {
	client SESSender
}

func NewSESRelay(client SESSender) *SESRelay {
	return &SESRelay{client: client}
}

func (r *SESRelay) Send(ctx context.Context, req Request) (*Response, error) {
	to := req.Params["to_email"]
	if to == "" {
		return &Response{Status: 400, Text: "missing to_email parameter"}, nil
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return nil, fmt.Errorf("encode template data: %w", err)
	}

	input := &ses.SendTemplatedEmailInput{
		Destination:  &types.Destination{ToAddresses: []string{to}},
		Source:       aws.String(sourceAddress(req.Params["from_name"], req.Params["from_email"])),
		Template:     aws.String(req.TemplateID),
		TemplateData: aws.String(string(data)),
	}
	if req.ServiceID != "" && req.ServiceID != defaultConfigurationSet {
		input.ConfigurationSetName = aws.String(req.ServiceID)
	}

	out, err := r.client.SendTemplatedEmail(ctx, input)
	if err != nil {
		var respErr *awshttp.ResponseError
		if stderrors.As(err, &respErr) {
			return &Response{Status: respErr.HTTPStatusCode(), Text: respErr.Error()}, nil
		}
		return nil, err
	}

	return &Response{Status: 200, Text: aws.ToString(out.MessageId)}, nil
}

func sourceAddress(name, email string) string {
	if name == "" {
		return email
	}
	return (&mail.Address{Name: name, Address: email}).String()
}
