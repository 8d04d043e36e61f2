package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type watchView struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Brand  string          `json:"brand"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stockQuantity"`
	Status string          `json:"status"`
}

func (h *Handler) listWatches(w http.ResponseWriter, r *http.Request) {
	list, err := h.watches.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	views := make([]watchView, len(list))
	for i, item := range list {
		views[i] = watchView{
			ID:     item.ID,
			Name:   item.Name,
			Brand:  item.Brand,
			Price:  item.Price,
			Stock:  item.Stock,
			Status: string(item.Status),
		}
	}
	respond(w, http.StatusOK, views)
}
