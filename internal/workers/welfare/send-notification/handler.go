// internal/workers/welfare/send-notification/handler.go
package sendnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"welfare-workers/internal/common/auth"
	"welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"
)

const (
	TaskType = "welfare-send-notification"
)

// Interfaces over the AWS clients for test mocks.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Handler delivers member notifications over email and SMS. Delivery runs as
// its own task precisely so that a provider outage retries here and never
// blocks or rolls back the domain operation that triggered it.
type Handler struct {
	config    *Config
	db        *sql.DB
	sesClient SESService
	snsClient SNSService
	errs      *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		db:        db,
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
		errs:      errors.NewErrorHandler(l),
		logger:    l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(client, job, errors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, err)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := auth.RequireCaller(input.CallerID); err != nil {
		return nil, err
	}
	if input.UserID == "" {
		return nil, errors.NewValidationFailedError("userId is required")
	}

	channel := input.Channel
	if channel == "" {
		channel = ChannelBoth
	}
	switch channel {
	case ChannelEmail, ChannelSMS, ChannelBoth:
	default:
		return nil, errors.NewValidationFailedError(fmt.Sprintf("unknown channel: %s", input.Channel))
	}

	template, exists := templates[input.NotificationType]
	if !exists {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("unknown notification type: %s", input.NotificationType))
	}

	contact, err := h.getContact(ctx, input.UserID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("member", input.UserID)
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load member contact", err)
	}

	data := map[string]interface{}{
		"name":   contact.Name,
		"userId": contact.UserID,
	}
	for k, v := range input.Metadata {
		data[k] = v
	}

	subject := renderTemplate(template.subject, data)
	body := renderTemplate(template.body, data)

	output := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusSkipped,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	wantEmail := channel == ChannelEmail || channel == ChannelBoth
	wantSMS := channel == ChannelSMS || channel == ChannelBoth

	if wantEmail && h.config.EmailEnabled && contact.Email != "" {
		if err := h.sendEmail(ctx, contact.Email, subject, body); err != nil {
			return nil, errors.NewNotificationSendFailedError("email", err)
		}
		output.EmailSent = true
	}
	if wantSMS && h.config.SMSEnabled && contact.Phone != "" {
		if err := h.sendSMS(ctx, contact.Phone, body); err != nil {
			return nil, errors.NewNotificationSendFailedError("sms", err)
		}
		output.SMSSent = true
	}

	if output.EmailSent || output.SMSSent {
		output.Status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationId": output.NotificationID,
		"userId":         input.UserID,
		"type":           input.NotificationType,
		"status":         output.Status,
	})

	return output, nil
}

func (h *Handler) getContact(ctx context.Context, userID string) (*models.MemberContact, error) {
	var c models.MemberContact
	err := h.db.QueryRowContext(ctx, `
		SELECT user_id, email, phone, name FROM members WHERE user_id = $1`,
		userID).Scan(&c.UserID, &c.Email, &c.Phone, &c.Name)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func (h *Handler) fail(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errs.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

type notificationTemplate struct {
	subject string
	body    string
}

var templates = map[string]notificationTemplate{
	TypeApplicationApproved: {
		subject: "Your welfare application was approved",
		body:    "Hello {{name}}, your application {{applicationId}} has been approved.",
	},
	TypeApplicationRejected: {
		subject: "Your welfare application was rejected",
		body:    "Hello {{name}}, your application {{applicationId}} was rejected. Reason: {{reason}}.",
	},
	TypeClaimPaid: {
		subject: "Claim payout completed",
		body:    "Hello {{name}}, the payout for application {{applicationId}} has been completed.",
	},
	TypeReimbursementDue: {
		subject: "Welfare fund contribution due",
		body:    "Hello {{name}}, your share of {{amountDue}} is due by {{dueDate}}.",
	},
}

// renderTemplate substitutes {{key}} placeholders and strips any left over.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
