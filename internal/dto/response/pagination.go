package response

// BookingPage is one page of a booking listing.
type BookingPage struct {
	Data []BookingResponse `json:"data"`
	Meta PageMeta          `json:"pagination"`
}

type PageMeta struct {
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"total_pages"`
	Status     string `json:"status,omitempty"`
}

func NewBookingPage(data []BookingResponse, page, perPage int, total int64, status string) *BookingPage {
	if data == nil {
		data = []BookingResponse{}
	}
	if page < 1 {
		page = 1
	}

	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}

	return &BookingPage{
		Data: data,
		Meta: PageMeta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: pages,
			Status:     status,
		},
	}
}
