package report

// CreateReportRequest is the submission payload
type CreateReportRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=120"`
	Description string   `json:"description" validate:"required,min=10,max=2000"`
	Type        string   `json:"reportType" validate:"required,report_type"`
	Latitude    *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address     *string  `json:"address" validate:"omitempty,max=250"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,url"`
}

// ApproveRequest carries the optional moderator comment
type ApproveRequest struct {
	Comment string `json:"comment" validate:"omitempty,max=500"`
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// EditReportRequest carries content overrides; omitted fields are kept
type EditReportRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=120"`
	Description *string `json:"description" validate:"omitempty,min=10,max=2000"`
	Type        *string `json:"reportType" validate:"omitempty,report_type"`
	Address     *string `json:"address" validate:"omitempty,max=250"`
}

// RequestInfoRequest carries the message sent to the report's author
type RequestInfoRequest struct {
	Message string `json:"message" validate:"required,min=3,max=500"`
}
