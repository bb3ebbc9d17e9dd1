package httpapi

import (
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/p-n-ai/pai-solutions/internal/content"
	"github.com/p-n-ai/pai-solutions/internal/export"
	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

func parseFilter(q url.Values) (content.ResourceFilter, error) {
	f := content.ResourceFilter{
		Status:     content.Status(strings.ToUpper(q.Get("status"))),
		Subject:    q.Get("subject"),
		Curriculum: content.Curriculum(strings.ToUpper(q.Get("curriculum"))),
		Type:       content.ResourceType(strings.ToUpper(q.Get("type"))),
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"grade", &f.Grade},
		{"page", &f.Page},
		{"limit", &f.Limit},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return content.ResourceFilter{}, apierr.Validation("%s must be a number", p.name)
		}
		*p.dst = n
	}
	return f, nil
}

func (h *handler) listResources(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.content.ListResources(r.Context(), f)
	if err != nil {
		writeJSON(w, apierr.StatusOf(err), map[string]any{
			"error":     "failed to list resources",
			"details":   errorMessage(r, err),
			"resources": []content.Resource{},
			"total":     0,
			"pages":     0,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": page.Items,
		"total":     page.Total,
		"pages":     page.Pages,
	})
}

func (h *handler) getResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.content.GetResource(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": res})
}

func (h *handler) createResource(w http.ResponseWriter, r *http.Request) {
	var in content.ResourceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.content.CreateResource(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"resource": res})
}

func (h *handler) updateResource(w http.ResponseWriter, r *http.Request) {
	var patch content.ResourcePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.content.UpdateResource(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": res})
}

func (h *handler) deleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteResource(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) exportResource(w http.ResponseWriter, r *http.Request) {
	f, res, err := h.exporter.Workbook(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": fileName(res.Title) + ".xlsx",
	}))
	if err := f.Write(w); err != nil {
		slog.Error("writing workbook", "resource_id", res.ID, "error", err)
	}
}

// fileName keeps letters, digits, dashes and underscores of title.
func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, title)
	if name == "" {
		return "export"
	}
	return name
}
