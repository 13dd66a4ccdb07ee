package dto

type QueryRequest struct {
	Query         string `json:"query" binding:"required"`
	PropertyID    string `json:"propertyId,omitempty"`
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
}
