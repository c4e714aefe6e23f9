package signup

import (
	"html/template"
	"mime"
	"net/http"

	"github.com/tendant/admin-verify/internal/http/features/common"
	"github.com/tendant/admin-verify/pkg/auth"
)

var confirmPage = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Administrator request</title></head>
<body>
	<h1>{{if .Approve}}Approve as {{.Role}}?{{else}}Reject this request?{{end}}</h1>
	<form method="post" action="">
		<input type="hidden" name="token" value="{{.Token}}">
		<input type="hidden" name="decision" value="{{.Decision}}">
		<input type="hidden" name="role" value="{{.Role}}">
		<button type="submit">Confirm</button>
	</form>
</body></html>`))

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Administrator request</title></head>
<body>
	<h1>{{.Title}}</h1>
	<p>{{.Message}}</p>
</body></html>`))

type confirmData struct {
	Approve  bool
	Token    string
	Decision string
	Role     string
}

type resultData struct {
	Title   string
	Message string
}

// ConfirmDecision renders the page an approver lands on from an email link.
// The decision is applied only when the page's form is submitted, so link
// prefetchers in mail clients cannot decide on the approver's behalf.
// GET /v1/admin/signup/{sessionID}/decision
func (h *Handler) ConfirmDecision(w http.ResponseWriter, r *http.Request) {
	if _, ok := common.SessionID(w, r); !ok {
		return
	}

	q := r.URL.Query()
	data := confirmData{
		Token:    q.Get("token"),
		Decision: q.Get("decision"),
		Role:     q.Get("role"),
	}
	switch auth.Decision(data.Decision) {
	case auth.DecisionApprove:
		data.Approve = true
	case auth.DecisionReject:
	default:
		h.renderResult(w, http.StatusBadRequest, resultData{Title: "Invalid link", Message: "This approval link is malformed."})
		return
	}
	if data.Token == "" {
		h.renderResult(w, http.StatusBadRequest, resultData{Title: "Invalid link", Message: "This approval link is malformed."})
		return
	}

	h.render(w, http.StatusOK, confirmPage, data)
}

// decideForm applies a decision posted from the confirmation page.
func (h *Handler) decideForm(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderResult(w, http.StatusBadRequest, resultData{Title: "Invalid request", Message: "The form could not be read."})
		return
	}

	decision := auth.Decision(r.PostForm.Get("decision"))
	err := h.service.DecideSignup(r.Context(), id, r.PostForm.Get("token"), decision, r.PostForm.Get("role"))
	if err != nil {
		status, msg := common.Status(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("verification request failed", "op", "decide signup", "error", err)
		}
		h.renderResult(w, status, resultData{Title: "Decision not recorded", Message: msg})
		return
	}

	if decision == auth.DecisionReject {
		h.renderResult(w, http.StatusOK, resultData{Title: "Request rejected", Message: "The candidate will not be given an account."})
		return
	}
	h.renderResult(w, http.StatusOK, resultData{Title: "Request approved", Message: "The candidate has been sent a code to finish setting up the account."})
}

func (h *Handler) renderResult(w http.ResponseWriter, status int, data resultData) {
	h.render(w, status, resultPage, data)
}

func (h *Handler) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "template", tmpl.Name(), "error", err)
	}
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}
