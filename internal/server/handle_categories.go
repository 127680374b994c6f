package server

import (
	"net/http"

	"github.com/playperu/tahaddi/internal/catalog"
)

type CategoriesResponse struct {
	Groups     []string               `json:"groups"`
	Categories []catalog.Availability `json:"categories"`
}

func handleCategories(cat *catalog.Catalog) http.HandlerFunc {
	groups := cat.Groups()

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CategoriesResponse{
			Groups:     groups,
			Categories: browserTable(r).Categories(r.Context()),
		})
	}
}
