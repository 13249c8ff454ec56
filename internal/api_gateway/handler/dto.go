package handler

// SubmissionRequestBody represents a request to act on a record or a flow
type SubmissionRequestBody struct {
	// Profile may be omitted for flows, which report a single profile
	Profile string `json:"profile"`
	Action  string `json:"action" binding:"required,oneof=send amend cancel qr rectify"`
}

// SubmissionResponse acknowledges a queued submission request
type SubmissionResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// SyncRequest represents a request to regroup a company's records into flows
type SyncRequest struct {
	Profile string `json:"profile" binding:"required"`
	// At selects the period to synchronize as YYYY-MM-DD; today when empty
	At string `json:"at,omitempty"`
}

// SyncResponse reports what a synchronization did to the flows
type SyncResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// FlowQuery represents the filters of the flow listing
type FlowQuery struct {
	CompanyID int64  `form:"company_id" binding:"required,min=1"`
	Profile   string `form:"profile" binding:"required"`
	Kind      string `form:"kind,default=transaction" binding:"oneof=transaction payment"`
	Start     string `form:"start" binding:"required"`
	End       string `form:"end" binding:"required"`
}

// NotesQuery limits the record log listing
type NotesQuery struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}
