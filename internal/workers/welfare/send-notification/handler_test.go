package sendnotification

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"

	stderrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
)

type mockSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (m *mockSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	sent []*sns.PublishInput
	err  error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &sns.PublishOutput{}, nil
}

func newTestHandler(t *testing.T, db *sql.DB, sesMock *mockSES, snsMock *mockSNS) *Handler {
	log := logger.NewTestLogger(t)
	return &Handler{
		config: &Config{
			Timeout:      5 * time.Second,
			EmailEnabled: true,
			SMSEnabled:   true,
			FromEmail:    "no-reply@example.org",
		},
		db:        db,
		sesClient: sesMock,
		snsClient: snsMock,
		errs:      stderrors.NewErrorHandler(log),
		logger:    log,
	}
}

func expectContact(mock sqlmock.Sqlmock, userID, email, phone string) {
	mock.ExpectQuery(`SELECT user_id, email, phone, name FROM members`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "email", "phone", "name"}).
			AddRow(userID, email, phone, "Amina"))
}

func TestHandler_Execute_BothChannels(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	expectContact(mock, "user-1", "amina@example.org", "+15550001111")

	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	handler := newTestHandler(t, db, sesMock, snsMock)

	output, err := handler.Execute(context.Background(), &Input{
		UserID:           "user-1",
		NotificationType: TypeApplicationApproved,
		Channel:          ChannelBoth,
		Metadata:         map[string]interface{}{"applicationId": "app-1"},
		CallerID:         "admin-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.True(t, output.EmailSent)
	assert.True(t, output.SMSSent)
	assert.Len(t, sesMock.sent, 1)
	assert.Len(t, snsMock.sent, 1)
	assert.Contains(t, *sesMock.sent[0].Message.Body.Text.Data, "app-1")
	assert.Contains(t, *sesMock.sent[0].Message.Body.Text.Data, "Amina")
}

func TestHandler_Execute_EmailOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	expectContact(mock, "user-1", "amina@example.org", "+15550001111")

	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	handler := newTestHandler(t, db, sesMock, snsMock)

	output, err := handler.Execute(context.Background(), &Input{
		UserID:           "user-1",
		NotificationType: TypeReimbursementDue,
		Channel:          ChannelEmail,
		CallerID:         "admin-1",
	})

	assert.NoError(t, err)
	assert.True(t, output.EmailSent)
	assert.False(t, output.SMSSent)
	assert.Empty(t, snsMock.sent)
}

func TestHandler_Execute_NoContactDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	expectContact(mock, "user-1", "", "")

	handler := newTestHandler(t, db, &mockSES{}, &mockSNS{})
	output, err := handler.Execute(context.Background(), &Input{
		UserID:           "user-1",
		NotificationType: TypeClaimPaid,
		Channel:          ChannelBoth,
		CallerID:         "admin-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusSkipped, output.Status)
}

func TestHandler_Execute_EmailProviderDown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	expectContact(mock, "user-1", "amina@example.org", "")

	sesMock := &mockSES{err: errors.New("throttled")}
	handler := newTestHandler(t, db, sesMock, &mockSNS{})

	output, err := handler.Execute(context.Background(), &Input{
		UserID:           "user-1",
		NotificationType: TypeApplicationRejected,
		Channel:          ChannelEmail,
		CallerID:         "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeNotificationSendFailed, stderrors.CodeOf(err))
	assert.True(t, stderrors.IsRetryableErrorCode(stderrors.CodeOf(err)))
}

func TestHandler_Execute_MemberNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id, email, phone, name FROM members`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	handler := newTestHandler(t, db, &mockSES{}, &mockSNS{})
	output, err := handler.Execute(context.Background(), &Input{
		UserID:           "ghost",
		NotificationType: TypeClaimPaid,
		Channel:          ChannelEmail,
		CallerID:         "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeNotFound, stderrors.CodeOf(err))
}

func TestHandler_Execute_UnknownChannel(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	handler := newTestHandler(t, db, &mockSES{}, &mockSNS{})
	output, err := handler.Execute(context.Background(), &Input{
		UserID:           "user-1",
		NotificationType: TypeClaimPaid,
		Channel:          "carrier-pigeon",
		CallerID:         "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeValidationFailed, stderrors.CodeOf(err))
}

func TestRenderTemplate(t *testing.T) {
	out := renderTemplate("Hello {{name}}, {{amountDue}} due by {{dueDate}}.{{missing}}", map[string]interface{}{
		"name":      "Amina",
		"amountDue": "333.33",
		"dueDate":   "2026-03-15",
	})
	assert.Equal(t, "Hello Amina, 333.33 due by 2026-03-15.", out)
}
