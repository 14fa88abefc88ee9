package dto

// CreateFreezeRequest suspends billing from FreezeStartDate. A missing end date means
// the freeze lasts until it is ended explicitly.
type CreateFreezeRequest struct {
	Reason          string  `json:"reason" validate:"required,max=500"`
	FreezeStartDate string  `json:"freezeStartDate" validate:"required,datetime=2006-01-02"`
	FreezeEndDate   *string `json:"freezeEndDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
