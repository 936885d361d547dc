package model

import "time"

// Account represents one AWS account in the organization hierarchy.
type Account struct {
	ID       string
	Name     string
	Email    string
	Status   string
	JoinedAt time.Time
}

// TagFilter selects accounts by a tag key and one or more accepted values.
type TagFilter struct {
	Key    string
	Values []string
}
