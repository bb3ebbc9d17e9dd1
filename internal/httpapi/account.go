package httpapi

import (
	"net/http"

	"github.com/p-n-ai/pai-solutions/internal/account"
)

func (h *handler) setRole(w http.ResponseWriter, r *http.Request) {
	var in account.RoleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.accounts.SetRole(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}
