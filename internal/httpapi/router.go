// Package httpapi exposes the content, account and billing services over
// HTTP.
package httpapi

import (
	"net/http"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/auth"
	"github.com/p-n-ai/pai-solutions/internal/billing"
	"github.com/p-n-ai/pai-solutions/internal/content"
	"github.com/p-n-ai/pai-solutions/internal/export"
)

// Deps are the services the API serves. Callback and Identity may be nil.
// Without a Callback every login attempt is sent back to the login page;
// without Identity every request is anonymous.
type Deps struct {
	Content       *content.Service
	Accounts      *account.Service
	Webhooks      *billing.Processor
	WebhookSecret string
	Exporter      *export.Exporter
	Identity      *auth.Middleware
	Callback      http.Handler
	Checks        []Check
}

type handler struct {
	content       *content.Service
	accounts      *account.Service
	webhooks      *billing.Processor
	webhookSecret string
	exporter      *export.Exporter
}

// NewHandler returns the full API with identity resolution and request
// logging applied.
func NewHandler(d Deps) http.Handler {
	h := &handler{
		content:       d.Content,
		accounts:      d.Accounts,
		webhooks:      d.Webhooks,
		webhookSecret: d.WebhookSecret,
		exporter:      d.Exporter,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", readyz(d.Checks))

	mux.HandleFunc("GET /api/resources", h.listResources)
	mux.HandleFunc("POST /api/resources", h.createResource)
	mux.HandleFunc("GET /api/resources/{id}", h.getResource)
	mux.HandleFunc("PATCH /api/resources/{id}", h.updateResource)
	mux.HandleFunc("DELETE /api/resources/{id}", h.deleteResource)
	mux.HandleFunc("GET /api/resources/{id}/chapters", h.listChapters)
	mux.HandleFunc("POST /api/resources/{id}/chapters", h.addChapter)
	mux.HandleFunc("GET /api/resources/{id}/export", h.exportResource)

	mux.HandleFunc("PATCH /api/chapters/{id}", h.updateChapter)
	mux.HandleFunc("DELETE /api/chapters/{id}", h.deleteChapter)

	mux.HandleFunc("GET /api/contents/{id}/children", h.listChildren)
	mux.HandleFunc("POST /api/contents/{id}/children", h.addChild)
	mux.HandleFunc("PATCH /api/contents/{id}", h.updateContent)
	mux.HandleFunc("DELETE /api/contents/{id}", h.deleteContent)
	mux.HandleFunc("GET /api/contents/{id}/questions", h.listQuestions)
	mux.HandleFunc("POST /api/contents/{id}/questions", h.createQuestion)

	mux.HandleFunc("PATCH /api/questions/{id}", h.updateQuestion)
	mux.HandleFunc("DELETE /api/questions/{id}", h.deleteQuestion)
	mux.HandleFunc("PUT /api/questions/{id}/solution", h.putSolution)

	mux.HandleFunc("PATCH /api/admin/profiles/{id}/role", h.setRole)
	mux.HandleFunc("POST /api/paystack/webhook", h.paystackWebhook)

	callback := d.Callback
	if callback == nil {
		callback = http.RedirectHandler(auth.LoginPath, http.StatusFound)
	}
	mux.Handle("GET /api/auth/callback", callback)

	var root http.Handler = mux
	if d.Identity != nil {
		root = d.Identity.Wrap(root)
	}
	return logRequests(root)
}
