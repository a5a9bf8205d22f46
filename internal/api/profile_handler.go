package api

import (
	"net/http"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/stats"
)

// ProfileResponse is the stored profile plus attempted, the categories with
// a non-zero score. A category scored at exactly 0% is not listed.
type ProfileResponse struct {
	stats.UserStats
	Attempted []category.Category `json:"attempted"`
}

func newProfileResponse(p stats.UserStats) ProfileResponse {
	resp := ProfileResponse{UserStats: p, Attempted: []category.Category{}}
	for _, c := range category.All() {
		if p.Attempted(c) {
			resp.Attempted = append(resp.Attempted, c)
		}
	}
	return resp
}

// GET /profile
func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newProfileResponse(h.practice.Profile()))
}
