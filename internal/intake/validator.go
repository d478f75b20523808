// Package intake validates batches of user-selected documents before they are tracked.
package intake

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxFileSize is the default per-file ceiling (10 MiB).
const MaxFileSize int64 = 10 * 1024 * 1024

const genericType = "application/octet-stream"

// DefaultAllowedTypes are the PDF and Word formats accepted for filing.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Rule names the check a candidate failed.
type Rule string

const (
	RuleType Rule = "type"
	RuleSize Rule = "size"
)

// Candidate is one file offered by the drop zone or the file picker.
type Candidate struct {
	Name     string
	Size     int64
	MIMEType string
	Content  []byte // optional; used for sniffing and by storage-backed transfers
}

// ValidationError is the rejection notice for a single candidate.
type ValidationError struct {
	File        string `json:"file"`
	Rule        Rule   `json:"rule"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Title, e.Description)
}

// Validator applies the type and size rules.
type Validator struct {
	allowed map[string]bool
	maxSize int64
}

// NewValidator creates a validator. Empty arguments select the defaults.
func NewValidator(allowedTypes []string, maxSize int64) *Validator {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}

	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		if n := normalizeType(t); n != "" {
			allowed[n] = true
		}
	}

	return &Validator{allowed: allowed, maxSize: maxSize}
}

// MaxSize returns the per-file ceiling in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// EffectiveType returns the normalized MIME type used for the type rule.
// A missing or generic declared type is replaced by the sniffed content type.
func (v *Validator) EffectiveType(c Candidate) string {
	declared := normalizeType(c.MIMEType)
	if (declared == "" || declared == genericType) && len(c.Content) > 0 {
		return normalizeType(mimetype.Detect(c.Content).String())
	}
	return declared
}

// Validate checks the type rule, then the size rule.
func (v *Validator) Validate(c Candidate) *ValidationError {
	if !v.allowed[v.EffectiveType(c)] {
		return &ValidationError{
			File:        c.Name,
			Rule:        RuleType,
			Title:       "Invalid file type: " + c.Name,
			Description: "Only PDF and Word documents are accepted.",
		}
	}
	if c.Size > v.maxSize {
		return &ValidationError{
			File:        c.Name,
			Rule:        RuleSize,
			Title:       "File too large: " + c.Name,
			Description: fmt.Sprintf("Maximum file size is %s.", formatSize(v.maxSize)),
		}
	}
	return nil
}

// Split partitions a batch into accepted candidates and rejection notices,
// both in input order. Accepted candidates carry their effective MIME type.
func (v *Validator) Split(batch []Candidate) ([]Candidate, []*ValidationError) {
	var accepted []Candidate
	var rejected []*ValidationError

	for _, c := range batch {
		if verr := v.Validate(c); verr != nil {
			rejected = append(rejected, verr)
			continue
		}
		c.MIMEType = v.EffectiveType(c)
		accepted = append(accepted, c)
	}

	return accepted, rejected
}

func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return mediaType
	}
	return strings.ToLower(t)
}

func formatSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024 && bytes%(1024*1024) == 0:
		return fmt.Sprintf("%dMB", bytes/(1024*1024))
	case bytes >= 1024 && bytes%1024 == 0:
		return fmt.Sprintf("%dKB", bytes/1024)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
