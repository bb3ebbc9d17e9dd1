package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-solutions/internal/billing"
)

// paystackWebhook verifies the body signature before anything is parsed.
// Processing failures answer 500 so the provider retries.
func (h *handler) paystackWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	signature := r.Header.Get(billing.SignatureHeader)
	if signature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing signature"})
		return
	}
	if err := billing.VerifySignature(h.webhookSecret, body, signature); err != nil {
		slog.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		writeError(w, r, err)
		return
	}

	outcome, err := h.webhooks.Process(r.Context(), body)
	if err != nil {
		slog.Error("webhook processing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "webhook processing failed"})
		return
	}
	slog.Info("webhook processed", "outcome", outcome)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
