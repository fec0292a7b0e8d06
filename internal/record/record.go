// Package record defines the per-document result record built by the
// enrichment stages and its JSON sidecar persistence.
package record

import (
	"encoding/json"
	"slices"
)

// Subject values accepted from classification.
const (
	SubjectChinese = "语文"
	SubjectEnglish = "英语"
	SubjectMath    = "数学"
)

// Subjects lists the accepted subject labels in prompt order.
var Subjects = []string{SubjectChinese, SubjectEnglish, SubjectMath}

// ValidSubject reports whether s is one of the accepted subject labels.
func ValidSubject(s string) bool {
	return slices.Contains(Subjects, s)
}

// Point is an (x, y) pixel coordinate.
type Point [2]float64

// Box is a text region as four corners, clockwise from top-left.
type Box [4]Point

// RectBox builds a Box from an axis-aligned rectangle.
func RectBox(x0, y0, x1, y1 float64) Box {
	return Box{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// Mistake is one incorrectly answered question found on a page.
type Mistake struct {
	Question string `json:"question" yaml:"question"`
	Reason   string `json:"reason" yaml:"reason"`
	Page     int    `json:"page,omitempty" yaml:"page,omitempty"` // 1-based page of origin
}

// Record accumulates the enrichment results for a single document.
//
// A nil slice means the producing stage has not run; an empty, non-nil
// slice means it ran and found nothing. A Record is owned by exactly one
// document run and must not be shared.
type Record struct {
	Texts       []string
	Boxes       []Box
	Subject     string
	Title       string
	Mistakes    []Mistake
	FailedPages []int
}

// HasTexts reports whether extraction produced at least one text line.
func (r *Record) HasTexts() bool {
	return len(r.Texts) > 0
}

// SetExtraction stores OCR output. Texts and boxes must be index-aligned.
func (r *Record) SetExtraction(texts []string, boxes []Box) {
	if texts == nil {
		texts = []string{}
	}
	if boxes == nil {
		boxes = []Box{}
	}
	r.Texts = texts
	r.Boxes = boxes
}

// SetMistakes stores the aggregated mistake list and the pages that failed.
func (r *Record) SetMistakes(mistakes []Mistake, failedPages []int) {
	if mistakes == nil {
		mistakes = []Mistake{}
	}
	if failedPages == nil {
		failedPages = []int{}
	}
	r.Mistakes = mistakes
	r.FailedPages = failedPages
}

// MistakesCount is always len(Mistakes).
func (r *Record) MistakesCount() int {
	return len(r.Mistakes)
}

// sidecar is the on-disk shape. Pointer fields are omitted when the
// producing stage did not run.
type sidecar struct {
	Texts         *[]string  `json:"texts,omitempty"`
	Boxes         *[]Box     `json:"boxes,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	Title         string     `json:"title,omitempty"`
	Mistakes      *[]Mistake `json:"mistakes,omitempty"`
	MistakesCount *int       `json:"mistakes_count,omitempty"`
	FailedPages   *[]int     `json:"failed_pages,omitempty"`
}

// MarshalJSON writes the sidecar form, deriving mistakes_count.
func (r Record) MarshalJSON() ([]byte, error) {
	var s sidecar
	if r.Texts != nil {
		s.Texts = &r.Texts
	}
	if r.Boxes != nil {
		s.Boxes = &r.Boxes
	}
	s.Subject = r.Subject
	s.Title = r.Title
	if r.Mistakes != nil {
		count := len(r.Mistakes)
		s.Mistakes = &r.Mistakes
		s.MistakesCount = &count
	}
	if r.FailedPages != nil {
		s.FailedPages = &r.FailedPages
	}
	return json.Marshal(s)
}

// UnmarshalJSON reads a sidecar. Unknown keys are ignored and a stored
// mistakes_count is not trusted over the list itself.
func (r *Record) UnmarshalJSON(data []byte) error {
	var s sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Record{Subject: s.Subject, Title: s.Title}
	if s.Texts != nil {
		r.Texts = *s.Texts
	}
	if s.Boxes != nil {
		r.Boxes = *s.Boxes
	}
	if s.Mistakes != nil {
		r.Mistakes = *s.Mistakes
	}
	if s.FailedPages != nil {
		r.FailedPages = *s.FailedPages
	}
	return nil
}
