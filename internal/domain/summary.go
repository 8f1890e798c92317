package domain

import "time"

// SentenceRecord is one scored sentence inside a rating bucket.
type SentenceRecord struct {
	Text     string   `json:"text" bson:"text"`
	Tokens   []string `json:"tokens" bson:"tokens"`
	Aspects  []string `json:"aspects" bson:"aspects"`
	UserName string   `json:"user_name,omitempty" bson:"user_name,omitempty"`
	Rating   int      `json:"rating" bson:"rating"`
	ProbPos  float64  `json:"prob_pos" bson:"prob_pos"`
	ProbNeg  float64  `json:"prob_neg" bson:"prob_neg"`
	ProbOpin float64  `json:"prob_opin" bson:"prob_opin"`
}

type AspectSummary struct {
	One   []SentenceRecord `json:"one" bson:"one"`
	Two   []SentenceRecord `json:"two" bson:"two"`
	Three []SentenceRecord `json:"three" bson:"three"`
	Four  []SentenceRecord `json:"four" bson:"four"`
	Five  []SentenceRecord `json:"five" bson:"five"`

	NumOne   int `json:"num_one" bson:"num_one"`
	NumTwo   int `json:"num_two" bson:"num_two"`
	NumThree int `json:"num_three" bson:"num_three"`
	NumFour  int `json:"num_four" bson:"num_four"`
	NumFive  int `json:"num_five" bson:"num_five"`

	FracPos float64 `json:"frac_pos" bson:"frac_pos"`
}

// NewAspectSummary returns a summary with empty, non-nil buckets so they
// encode as [] rather than null.
func NewAspectSummary() AspectSummary {
	return AspectSummary{
		One:   []SentenceRecord{},
		Two:   []SentenceRecord{},
		Three: []SentenceRecord{},
		Four:  []SentenceRecord{},
		Five:  []SentenceRecord{},
	}
}

// Bucket returns the bucket for a star rating, nil outside 1..5.
func (a *AspectSummary) Bucket(rating int) *[]SentenceRecord {
	switch rating {
	case 1:
		return &a.One
	case 2:
		return &a.Two
	case 3:
		return &a.Three
	case 4:
		return &a.Four
	case 5:
		return &a.Five
	}
	return nil
}

// Total is the number of scored sentences across all buckets.
func (a AspectSummary) Total() int {
	return len(a.One) + len(a.Two) + len(a.Three) + len(a.Four) + len(a.Five)
}

// BusinessSummary is the persisted and served artifact.
type BusinessSummary struct {
	BusinessID    string                   `json:"business_id" bson:"business_id"`
	Version       string                   `json:"version" bson:"version"`
	BusinessName  string                   `json:"business_name" bson:"business_name"`
	AspectSummary map[string]AspectSummary `json:"aspect_summary" bson:"aspect_summary"`
}

// SummaryRef is a listing entry for stored summaries.
type SummaryRef struct {
	BusinessID   string    `json:"business_id" bson:"business_id"`
	Version      string    `json:"version" bson:"version"`
	BusinessName string    `json:"business_name" bson:"business_name"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type SummariesPage struct {
	Items []SummaryRef `json:"items"`
}
