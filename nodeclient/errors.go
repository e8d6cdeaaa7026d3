package nodeclient

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL    = errors.New("nodeclient: invalid node url")
	ErrNodeOffline   = errors.New("nodeclient: node is not online")
	ErrBadResponse   = errors.New("nodeclient: malformed node response")
	ErrEmptyContract = errors.New("nodeclient: empty contract name")
)

// HTTPError is returned for non-2xx responses that carry no node error
// message.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("nodeclient: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("nodeclient: http status %d: %s", e.StatusCode, e.Body)
}

// NodeError is an error message reported by the node itself, for example a
// rejected transaction.
type NodeError struct {
	StatusCode int
	Message    string
}

func (e *NodeError) Error() string {
	return "node error: " + e.Message
}
