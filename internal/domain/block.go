package domain

// Block is a chain block reduced to what timestamp resolution needs.
// Timestamp is unix seconds.
type Block struct {
	Number    uint64 `json:"number"`
	Timestamp int64  `json:"timestamp"`
}
