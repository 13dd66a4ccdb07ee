package model

// Response is the envelope returned by every API endpoint.
type Response struct {
	Success  bool                   `json:"success"`
	Answer   *string                `json:"answer,omitempty"`
	Data     interface{}            `json:"data,omitempty"`
	Error    *string                `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func NewResponse(message string, data interface{}) *Response {
	return &Response{
		Success: false,
		Error:   &message,
		Data:    data,
	}
}
