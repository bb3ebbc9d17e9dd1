package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/p-n-ai/pai-solutions/internal/content"
)

func (h *handler) listChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.content.ListChapters(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": chapters})
}

func (h *handler) addChapter(w http.ResponseWriter, r *http.Request) {
	var in content.NodeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.content.AddChapter(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"chapter": ch})
}

func (h *handler) updateChapter(w http.ResponseWriter, r *http.Request) {
	var patch content.NodePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.content.UpdateChapter(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapter": ch})
}

func (h *handler) deleteChapter(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteChapter(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.content.ListChildren(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": children})
}

func (h *handler) addChild(w http.ResponseWriter, r *http.Request) {
	var in content.NodeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.content.AddChild(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"content": n})
}

func (h *handler) updateContent(w http.ResponseWriter, r *http.Request) {
	var patch content.NodePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.content.UpdateContent(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": n})
}

func (h *handler) deleteContent(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteContent(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.content.ListQuestions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (h *handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in content.QuestionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.content.CreateQuestion(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"question": q})
}

func (h *handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var patch content.QuestionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.content.UpdateQuestion(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

func (h *handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putSolution takes the solution payload as the whole request body.
func (h *handler) putSolution(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, r, err)
		return
	}
	sol, err := h.content.PutSolution(r.Context(), r.PathValue("id"), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"solution": sol})
}
