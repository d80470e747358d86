// Package alert notifies operators over SNS when a batch reaches nobody.
package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"intake-notifications/internal/common/errors"
	"intake-notifications/internal/models"
)

// SNS subjects are limited to 100 characters.
const maxSubjectLen = 100

// SNSPublisher is the part of the SNS client used for alerts.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Publisher struct {
	client   SNSPublisher
	topicARN string
}

func NewPublisher(client SNSPublisher, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

type alertMessage struct {
	Event        string                    `json:"event"`
	SubmissionID string                    `json:"submissionId"`
	ProjectName  string                    `json:"projectName"`
	Attempted    int                       `json:"attempted"`
	Delivered    int                       `json:"delivered"`
	Outcomes     []models.RecipientOutcome `json:"outcomes"`
}

// TotalFailure publishes a summary of a dispatch in which no recipient was reached.
func (p *Publisher) TotalFailure(ctx context.Context, sub *models.SubmissionRecord, result models.DispatchResult) error {
	msg := alertMessage{
		Event:     "notification.total_failure",
		Attempted: result.Attempted,
		Delivered: result.Delivered,
		Outcomes:  result.Outcomes,
	}
	if sub != nil {
		msg.SubmissionID = sub.ID
		msg.ProjectName = models.OrNotSpecified(sub.ProjectName)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return errors.NewAlertPublishFailedError(err)
	}

	subject := fmt.Sprintf("Notifikasi admin gagal terkirim: %s", msg.SubmissionID)
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(msg.Event)},
		},
	})
	if err != nil {
		return errors.NewAlertPublishFailedError(err)
	}
	return nil
}
