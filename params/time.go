package params

import "time"

// UnixSecondsToTime converts a transaction timestamp (unix seconds) to time.Time.
func UnixSecondsToTime(ts uint64) time.Time {
	return time.Unix(int64(ts), 0)
}
