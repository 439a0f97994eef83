package storage

import "time"

type cachedTask struct {
	ID       int64
	Archived bool
	Position int
	Payload  string
}

type FiredReminder struct {
	Key     string
	TaskID  int64
	FiredAt time.Time
}
