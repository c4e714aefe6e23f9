package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/tendant/admin-verify/pkg/domain"
)

var approvalTemplate = template.Must(template.New("approval").Parse(`<html><body>
	<h2>New administrator request</h2>
	<p>{{.Candidate.Name}} &lt;{{.Candidate.Email}}&gt; has asked for an administrator account.</p>
	{{- if .Candidate.Phone}}
	<p>Phone: {{.Candidate.Phone}}</p>
	{{- end}}
	{{- if .Metadata}}
	<ul>
	{{- range .Metadata}}
		<li>{{.Key}}: {{.Value}}</li>
	{{- end}}
	</ul>
	{{- end}}
	<p>Choose one of the following:</p>
	<ul>
	{{- range .Links}}
		<li><a href="{{.URL}}">{{.Label}}</a></li>
	{{- end}}
	</ul>
</body></html>`))

var codeTemplate = template.Must(template.New("code").Parse(`<html><body>
	<h2>{{.Title}}</h2>
	<p>{{.Intro}}</p>
	<p style="font-size: 24px; letter-spacing: 4px;"><strong>{{.Code}}</strong></p>
	<p>This code expires in {{.Minutes}} minutes.</p>
	<p>If you did not request this, please ignore this email.</p>
</body></html>`))

type codeCopy struct {
	Subject string
	Title   string
	Intro   string
}

var codeCopies = map[domain.FlowType]codeCopy{
	domain.FlowSignup: {
		Subject: "Your administrator account was approved",
		Title:   "Confirm your email address",
		Intro:   "Your administrator request was approved. Enter this code to continue setting up your account.",
	},
	domain.FlowPasswordReset: {
		Subject: "Reset your password",
		Title:   "Reset your password",
		Intro:   "A password reset was requested for your administrator account. Enter this code to continue.",
	},
	domain.FlowEmailChange: {
		Subject: "Confirm your email change",
		Title:   "Confirm your email change",
		Intro:   "An email address change was requested for your administrator account. Enter this code to confirm.",
	},
}

type metadataEntry struct {
	Key   string
	Value string
}

// Mailer renders verification messages and hands them to a Sender.
type Mailer struct {
	sender  Sender
	appName string
}

// NewMailer creates a new mailer. appName prefixes every subject.
func NewMailer(sender Sender, appName string) *Mailer {
	return &Mailer{sender: sender, appName: appName}
}

// SendApprovalRequest asks the approver to decide on a candidate.
func (m *Mailer) SendApprovalRequest(ctx context.Context, to string, candidate domain.Candidate, links []domain.ApprovalLink) error {
	keys := make([]string, 0, len(candidate.Metadata))
	for k := range candidate.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	metadata := make([]metadataEntry, 0, len(keys))
	for _, k := range keys {
		metadata = append(metadata, metadataEntry{Key: k, Value: candidate.Metadata[k]})
	}

	var body bytes.Buffer
	err := approvalTemplate.Execute(&body, struct {
		Candidate domain.Candidate
		Metadata  []metadataEntry
		Links     []domain.ApprovalLink
	}{candidate, metadata, links})
	if err != nil {
		return fmt.Errorf("failed to render approval request: %w", err)
	}

	return m.sender.Send(ctx, to, m.subject("Administrator request from "+candidate.Name), body.String())
}

// SendCode delivers a one-time code for the given flow.
func (m *Mailer) SendCode(ctx context.Context, to string, flow domain.FlowType, code string, ttl time.Duration) error {
	text, ok := codeCopies[flow]
	if !ok {
		return fmt.Errorf("no message for flow %q", flow)
	}

	var body bytes.Buffer
	err := codeTemplate.Execute(&body, struct {
		codeCopy
		Code    string
		Minutes int
	}{text, code, int(ttl.Round(time.Minute) / time.Minute)})
	if err != nil {
		return fmt.Errorf("failed to render code message: %w", err)
	}

	return m.sender.Send(ctx, to, m.subject(text.Subject), body.String())
}

var headerSafe = strings.NewReplacer("\r", " ", "\n", " ")

func (m *Mailer) subject(s string) string {
	s = headerSafe.Replace(s)
	if m.appName == "" {
		return s
	}
	return "[" + m.appName + "] " + s
}
