package handler

import (
	"catalog-browser/internal/cart"
	"catalog-browser/internal/catalog"
	"catalog-browser/internal/format"
	"catalog-browser/internal/icon"
	"catalog-browser/internal/textmatch"
)

type itemView struct {
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	Price      float64          `json:"price"`
	PriceText  string           `json:"price_text"`
	Icon       string           `json:"icon"`
	URL        string           `json:"url,omitempty"`
	Spans      []textmatch.Span `json:"spans,omitempty"`
	Candidates []string         `json:"candidates,omitempty"`
	Fields     map[string]any   `json:"fields,omitempty"`
	InCart     int              `json:"in_cart,omitempty"`
}

func newItemView(it catalog.Item) itemView {
	return itemView{
		Key:       it.Key,
		Name:      it.Name,
		Price:     it.PriceOrZero(),
		PriceText: format.Price(it.PriceOrZero()),
		Icon:      it.IconPath,
		URL:       it.URL,
	}
}

// cardView: карточка выбранного товара, всё из строки плюс кандидаты иконки.
func cardView(it catalog.Item, inCart int) itemView {
	v := newItemView(it)
	v.Candidates = icon.Candidates(it.IconPath)
	v.Fields = it.Fields
	v.InCart = inCart
	return v
}

type searchResponse struct {
	Query     string     `json:"query"`
	Total     int        `json:"total"`
	Offset    int        `json:"offset"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	Items     []itemView `json:"items"`
	LoadedAt  string     `json:"loaded_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type cartLine struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Price     float64 `json:"price"`
	PriceText string  `json:"price_text"`
	Qty       int     `json:"qty"`
	Sum       float64 `json:"sum"`
	SumText   string  `json:"sum_text"`
}

type cartView struct {
	Entries   []cartLine `json:"entries"`
	Positions int        `json:"positions"`
	Total     float64    `json:"total"`
	TotalText string     `json:"total_text"`
}

func newCartView(entries []cart.Entry) cartView {
	lines := make([]cartLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, cartLine{
			Key:       e.Item.Key,
			Name:      e.Item.Name,
			Icon:      e.Item.IconPath,
			Price:     e.Item.PriceOrZero(),
			PriceText: format.Price(e.Item.PriceOrZero()),
			Qty:       e.Qty,
			Sum:       e.Sum(),
			SumText:   format.Price(e.Sum()),
		})
	}
	total := cart.Total(entries)
	return cartView{
		Entries:   lines,
		Positions: len(lines),
		Total:     total,
		TotalText: format.Price(total),
	}
}
