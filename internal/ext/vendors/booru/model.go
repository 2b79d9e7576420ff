package booru

// Data is the persisted subscription state: the normalized tag query and
// the highest post ID already delivered.
type Data struct {
	Tags   string `json:"tags"`
	Offset int64  `json:"offset,omitempty"`
}
