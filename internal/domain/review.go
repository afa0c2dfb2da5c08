package domain

import "time"

// StarRating is the five-valued rating enum used on the wire.
type StarRating string

const (
	StarOne   StarRating = "ONE"
	StarTwo   StarRating = "TWO"
	StarThree StarRating = "THREE"
	StarFour  StarRating = "FOUR"
	StarFive  StarRating = "FIVE"
)

// ParseStarRating accepts the enum literal or its numeric form ("1".."5").
func ParseStarRating(s string) (StarRating, bool) {
	switch s {
	case "ONE", "1":
		return StarOne, true
	case "TWO", "2":
		return StarTwo, true
	case "THREE", "3":
		return StarThree, true
	case "FOUR", "4":
		return StarFour, true
	case "FIVE", "5":
		return StarFive, true
	}
	return "", false
}

// Numeric maps the enum to 1..5. ok is false for unmapped values.
func (s StarRating) Numeric() (int, bool) {
	switch s {
	case StarOne:
		return 1, true
	case StarTwo:
		return 2, true
	case StarThree:
		return 3, true
	case StarFour:
		return 4, true
	case StarFive:
		return 5, true
	}
	return 0, false
}

// NumericOrNeutral maps unmapped legacy values to 3 so bad historical rows
// don't drag averages toward zero. New ingestion rejects such values.
func (s StarRating) NumericOrNeutral() int {
	if n, ok := s.Numeric(); ok {
		return n
	}
	return 3
}

type ReplyStatus string

const (
	StatusPending ReplyStatus = "pending"
	StatusReplied ReplyStatus = "replied"
	// StatusIgnored exists only as a filter value; it is never derived.
	StatusIgnored ReplyStatus = "ignored"
)

type Reviewer struct {
	DisplayName     string `json:"displayName"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
}

type ReviewReply struct {
	Comment     string    `json:"comment"`
	UpdateTime  time.Time `json:"updateTime"`
	AIGenerated bool      `json:"aiGenerated,omitempty"`
}

// ReviewRecord is one customer review, flattened with its parent profile's
// id and display name. CreateTime is zero when the source sent no usable
// timestamp; aggregation treats such rows as degraded rather than guessing.
type ReviewRecord struct {
	ReviewID     string       `json:"reviewId"`
	ProfileID    string       `json:"businessProfileId"`
	ProfileName  string       `json:"businessProfileName"`
	Reviewer     Reviewer     `json:"reviewer"`
	StarRating   StarRating   `json:"starRating"`
	Comment      string       `json:"comment"`
	CreateTime   time.Time    `json:"createTime"`
	UpdateTime   time.Time    `json:"updateTime"`
	Reply        *ReviewReply `json:"reviewReply,omitempty"`
	Status       ReplyStatus  `json:"replyStatus"`
	ResourceName string       `json:"name,omitempty"`
	RawJSON      []byte       `json:"-"`
}

// ReplyStatus derives the status from reply presence and a non-empty comment.
func (r ReviewRecord) ReplyStatus() ReplyStatus {
	if r.Reply != nil && r.Reply.Comment != "" {
		return StatusReplied
	}
	return StatusPending
}

// HasReply reports whether the review counts as replied for statistics.
func (r ReviewRecord) HasReply() bool { return r.ReplyStatus() == StatusReplied }
