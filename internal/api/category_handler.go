package api

import (
	"net/http"

	"github.com/aceprep/backend/internal/domain/category"
)

type CategoryResponse struct {
	Slug          string            `json:"slug" example:"math"`
	Name          category.Category `json:"name" example:"Mathematics"`
	Composite     bool              `json:"composite"`
	QuestionCount int               `json:"questionCount" example:"5"`
	Score         int               `json:"score" example:"80"`
}

// GET /categories
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	infos := h.practice.Categories()

	resp := make([]CategoryResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, CategoryResponse{
			Slug:          info.Category.Slug(),
			Name:          info.Category,
			Composite:     info.Category.IsComposite(),
			QuestionCount: info.QuestionCount,
			Score:         info.Score,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
