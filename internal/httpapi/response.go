package httpapi

import "github.com/zzenonn/zpicker/internal/domain"

type Status string

const (
	StatusOK      Status = "OK"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is the envelope of every reply.
type Response struct {
	Status Status               `json:"status,omitempty"`
	Sets   []domain.ReplicaSet  `json:"sets,omitempty"`
	Nodes  []domain.StorageNode `json:"nodes,omitempty"`
	Node   *domain.StorageNode  `json:"node,omitempty"`
	Error  string               `json:"error,omitempty"`
	// Reason carries the InsufficientSpace cause when there is one.
	Reason string `json:"reason,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
