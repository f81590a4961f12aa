package agent

import "time"

// Request is the RPC envelope consumed from the request queue.
type Request struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Result carries the outcome of one request.
type Result struct {
	Status  string         `json:"status"`
	Content map[string]any `json:"content"`
}

// Response is published to the response queue, correlated by ID.
type Response struct {
	ID     string `json:"id"`
	Result Result `json:"result"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func successResponse(id string, content map[string]any) Response {
	content["processed_at"] = time.Now().UTC().Format(time.RFC3339)
	return Response{ID: id, Result: Result{Status: StatusSuccess, Content: content}}
}

func errorResponse(id, message string) Response {
	return Response{ID: id, Result: Result{
		Status: StatusError,
		Content: map[string]any{
			"error":        message,
			"processed_at": time.Now().UTC().Format(time.RFC3339),
		},
	}}
}
