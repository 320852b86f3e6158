package api

import (
	"net/http"

	"github.com/okian/teamform/pkg/logger"
)

// SearchHandler serves people search, project exploration and teammate suggestions.
type SearchHandler struct {
	responder
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies, log logger.Logger) *SearchHandler {
	return &SearchHandler{responder: responder{log: log}, deps: deps}
}

// HandleSearchProfiles handles GET /search/profiles?q= requests.
func (h *SearchHandler) HandleSearchProfiles(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_profiles"
	out, err := h.deps.SearchProfiles(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleExploreProjects handles GET /projects?q=&sort= requests.
func (h *SearchHandler) HandleExploreProjects(w http.ResponseWriter, r *http.Request) {
	const op = "api.explore_projects"
	q := r.URL.Query()
	out, err := h.deps.ExploreProjects(r.Context(), q.Get("q"), q.Get("sort"))
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleProjectSuggestions handles GET /projects/{id}/suggestions requests.
func (h *SearchHandler) HandleProjectSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_suggestions"
	out, err := h.deps.SuggestForProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSuggestions handles GET /suggestions?skills= requests.
func (h *SearchHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggestions"
	out, err := h.deps.Suggest(r.Context(), r.URL.Query().Get("skills"))
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
