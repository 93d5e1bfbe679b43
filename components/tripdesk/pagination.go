package tripdesk

// Paginated is a page-sliced listing plus page metadata, shaped like the upstream payload.
type Paginated[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// PageMeta is the record-free part of a Paginated collection.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// Meta strips the records.
func (p Paginated[T]) Meta() PageMeta {
	return PageMeta{
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		PerPage:     p.PerPage,
		Total:       p.Total,
		From:        p.From,
		To:          p.To,
	}
}

// PaginateSlice slices items for the requested page. Out of range pages yield an empty
// page with accurate totals. page and perPage below 1 fall back to 1 and DefaultPerPage.
func PaginateSlice[T any](items []T, page, perPage int) Paginated[T] {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	out := Paginated[T]{
		Data:        []T{},
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}
	start := (page - 1) * perPage
	if start >= total {
		return out
	}
	end := start + perPage
	if end > total {
		end = total
	}
	out.Data = append(out.Data, items[start:end]...)
	out.From = start + 1
	out.To = end
	return out
}
