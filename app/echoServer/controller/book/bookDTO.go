package book

type CreateBookReq struct {
	Title     string  `json:"title" validate:"required"`
	ISBN      *string `json:"isbn,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Author    string  `json:"author,omitempty"`
	Publisher string  `json:"publisher,omitempty"`
	Genre     string  `json:"genre,omitempty"`
}

type AddCopiesReq struct {
	Count int `json:"count" validate:"required,gt=0"`
}
