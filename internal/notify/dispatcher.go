// internal/notify/dispatcher.go

// Package notify delivers candidate notifications as a fire-and-forget side
// channel. Delivery failures are logged and dropped; nothing here propagates
// to or delays the pipeline mutation that triggered it.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hiring-pipeline/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// EmailSender sends a single email. Satisfied by internal/common/aws.SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender publishes a single SMS. Satisfied by internal/common/aws.SNSClient.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Dispatcher struct {
	email     EmailSender
	sms       SMSSender
	fromEmail string
	timeout   time.Duration
	logger    logger.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a notification dispatcher. Either sender may be nil,
// disabling that channel.
func NewDispatcher(email EmailSender, sms SMSSender, fromEmail string, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		email:     email,
		sms:       sms,
		fromEmail: fromEmail,
		timeout:   10 * time.Second,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// SendRejectionEmail queues a rejection email and returns immediately.
func (d *Dispatcher) SendRejectionEmail(candidateEmail, reason string) {
	if d.email == nil || candidateEmail == "" {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		input := &ses.SendEmailInput{
			Source: aws.String(d.fromEmail),
			Destination: &sestypes.Destination{
				ToAddresses: []string{candidateEmail},
			},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{
					Data: aws.String("Update on your application"),
				},
				Body: &sestypes.Body{
					Text: &sestypes.Content{
						Data: aws.String(rejectionBody(reason)),
					},
				},
			},
		}

		if _, err := d.email.SendEmail(ctx, input); err != nil {
			d.logger.Warn("rejection email send failed", map[string]interface{}{
				"candidateEmail": candidateEmail,
				"error":          err.Error(),
			})
			return
		}

		d.logger.Debug("rejection email sent", map[string]interface{}{
			"candidateEmail": candidateEmail,
		})
	}()
}

// SendSMS queues a plain text message to a phone number.
func (d *Dispatcher) SendSMS(phoneNumber, message string) {
	if d.sms == nil || phoneNumber == "" {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		input := &sns.PublishInput{
			PhoneNumber: aws.String(phoneNumber),
			Message:     aws.String(message),
		}

		if _, err := d.sms.Publish(ctx, input); err != nil {
			d.logger.Warn("sms send failed", map[string]interface{}{
				"phoneNumber": phoneNumber,
				"error":       err.Error(),
			})
		}
	}()
}

// Wait blocks until all queued notifications have been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func rejectionBody(reason string) string {
	body := "Thank you for your interest in the position. " +
		"After careful consideration we have decided not to move forward with your application."
	if reason != "" && reason != "position_filled" {
		body += fmt.Sprintf("\n\nReason: %s", strings.ReplaceAll(reason, "_", " "))
	}
	return body
}
