package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tendant/admin-verify/pkg/domain"
)

func TestMailer_SendApprovalRequest(t *testing.T) {
	sender := NewMemorySender()
	m := NewMailer(sender, "Admin")

	candidate := domain.Candidate{
		Name:     "Grace <script>",
		Email:    "grace@example.com",
		Phone:    "+1 555 0100",
		Metadata: map[string]string{"team": "compilers", "region": "us"},
	}
	links := []domain.ApprovalLink{
		{Label: "Approve as operator", URL: "https://admin.example.com/v1/admin/signup/1/decision?decision=approve&role=operator&token=abc"},
		{Label: "Reject", URL: "https://admin.example.com/v1/admin/signup/1/decision?decision=reject&token=abc"},
	}

	if err := m.SendApprovalRequest(context.Background(), "approver@example.com", candidate, links); err != nil {
		t.Fatalf("SendApprovalRequest() error = %v", err)
	}

	msg, ok := sender.Last("approver@example.com")
	if !ok {
		t.Fatal("no message sent to approver")
	}
	if msg.Subject != "[Admin] Administrator request from Grace <script>" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if strings.Contains(msg.Body, "<script>") {
		t.Error("candidate fields must be escaped in the body")
	}
	// html/template escapes '+' in text content.
	for _, want := range []string{"grace@example.com", "&#43;1 555 0100", "region: us", "team: compilers", "Approve as operator", "Reject"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Index(msg.Body, "region") > strings.Index(msg.Body, "team") {
		t.Error("metadata should be listed in key order")
	}
	if !strings.Contains(msg.Body, `href="https://admin.example.com/v1/admin/signup/1/decision?decision=approve&amp;role=operator&amp;token=abc"`) {
		t.Errorf("approve link missing from body:\n%s", msg.Body)
	}
}

func TestMailer_SendCode(t *testing.T) {
	tests := []struct {
		flow    domain.FlowType
		subject string
	}{
		{domain.FlowSignup, "Your administrator account was approved"},
		{domain.FlowPasswordReset, "Reset your password"},
		{domain.FlowEmailChange, "Confirm your email change"},
	}

	for _, tt := range tests {
		t.Run(string(tt.flow), func(t *testing.T) {
			sender := NewMemorySender()
			m := NewMailer(sender, "")

			if err := m.SendCode(context.Background(), "ada@example.com", tt.flow, "042917", 10*time.Minute); err != nil {
				t.Fatalf("SendCode() error = %v", err)
			}
			msg, _ := sender.Last("ada@example.com")
			if msg.Subject != tt.subject {
				t.Errorf("Subject = %q, want %q", msg.Subject, tt.subject)
			}
			if !strings.Contains(msg.Body, "042917") || !strings.Contains(msg.Body, "10 minutes") {
				t.Errorf("body = %s", msg.Body)
			}
		})
	}
}

func TestMailer_UnknownFlow(t *testing.T) {
	m := NewMailer(NewMemorySender(), "")
	if err := m.SendCode(context.Background(), "ada@example.com", domain.FlowType("LOGIN"), "123456", time.Minute); err == nil {
		t.Error("SendCode() should fail for an unknown flow")
	}
}

func TestMailer_SenderFailure(t *testing.T) {
	sender := NewMemorySender()
	sender.Err = errors.New("relay down")
	m := NewMailer(sender, "")

	err := m.SendCode(context.Background(), "ada@example.com", domain.FlowPasswordReset, "123456", time.Minute)
	if !errors.Is(err, sender.Err) {
		t.Errorf("SendCode() error = %v, want %v", err, sender.Err)
	}
	if len(sender.Messages()) != 0 {
		t.Error("failed send should not be recorded")
	}
}

func TestMailer_SubjectHasNoLineBreaks(t *testing.T) {
	sender := NewMemorySender()
	m := NewMailer(sender, "")

	candidate := domain.Candidate{Name: "Grace\r\nBcc: x@example.com", Email: "grace@example.com"}
	if err := m.SendApprovalRequest(context.Background(), "approver@example.com", candidate, nil); err != nil {
		t.Fatalf("SendApprovalRequest() error = %v", err)
	}
	msg, _ := sender.Last("approver@example.com")
	if strings.ContainsAny(msg.Subject, "\r\n") {
		t.Errorf("Subject = %q contains a line break", msg.Subject)
	}
}

func TestSMTPSender_RejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})

	err := s.Send(context.Background(), "ada@example.com\r\nBcc: x@example.com", "hi", "body")
	if !errors.Is(err, errHeaderInjection) {
		t.Errorf("Send() error = %v, want errHeaderInjection", err)
	}
}
