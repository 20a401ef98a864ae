package upload

// State is the progress of a multipart upload.
type State int

// States of a multipart upload. Failed can follow any other state.
const (
	NotStarted State = iota
	Initiated
	PartsInFlight
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Initiated:
		return "initiated"
	case PartsInFlight:
		return "parts in flight"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is a multipart upload opened on the remote side.
type Session struct {
	UploadID    string
	VaultName   string
	PartSize    int64
	Description string
}
