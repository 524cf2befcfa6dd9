package domain

import "time"

// PostStatus is the lifecycle state of a persisted post record.
type PostStatus string

const (
	// PostStatusDraft is the state every pipeline-produced post starts in.
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished marks a post the user has published.
	PostStatusPublished PostStatus = "published"
	// PostStatusArchived marks a post hidden from the dashboard.
	PostStatusArchived PostStatus = "archived"
)

// validPostStatuses maps every recognised PostStatus to true.
var validPostStatuses = map[PostStatus]bool{
	PostStatusDraft:     true,
	PostStatusPublished: true,
	PostStatusArchived:  true,
}

// IsValid reports whether s is a recognised post status.
func (s PostStatus) IsValid() bool {
	return validPostStatuses[s]
}

// Post is the persisted record derived from a successful pipeline run.
type Post struct {
	ID          string     `db:"id"           json:"id"`
	RequesterID string     `db:"requester_id" json:"requester_id"`
	Content     string     `db:"content"      json:"content"`
	Tone        string     `db:"tone"         json:"tone"`
	Status      PostStatus `db:"status"       json:"status"`
	AIScore     int        `db:"ai_score"     json:"ai_score"`
	HumanScore  int        `db:"human_score"  json:"human_score"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}
