package types

import "time"

// CheckTime returns ErrNonUTCTime unless t is in UTC.
func CheckTime(t time.Time) error {
	if t.Location() != time.UTC {
		return ErrNonUTCTime
	}
	return nil
}
