package journal

import (
	"net/http"

	"github.com/noah-isme/backend-billing/internal/common"
)

// Handler exposes the admin settlement journal listing.
type Handler struct {
	Store Store
}

// List returns a paginated list of submitted settlements.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "JOURNAL_NOT_CONFIGURED", "journal store not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 50)
	if limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit
	kind := r.URL.Query().Get("kind")

	entries, err := h.Store.List(r.Context(), kind, limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "JOURNAL_QUERY_FAILED", "unable to fetch settlements", nil)
		return
	}
	total, err := h.Store.Count(r.Context(), kind)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "JOURNAL_QUERY_FAILED", "unable to count settlements", nil)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       entries,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(total)},
	})
}
