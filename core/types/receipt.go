package types

// SubmitResult is a node's answer to an accepted transaction.
type SubmitResult struct {
	Success string `json:"success"`
	Hash    string `json:"hash"`
}
