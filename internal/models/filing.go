package models

import (
	"fmt"
	"strings"
	"time"
)

// CaseMetadata is the case information entered alongside the documents.
type CaseMetadata struct {
	CaseNumber   string `json:"caseNumber"`
	Court        string `json:"court"`
	DocumentType string `json:"documentType"`
	Description  string `json:"description,omitempty"`
}

// MissingFields returns the JSON names of required fields that are blank,
// in form order.
func (m CaseMetadata) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(m.CaseNumber) == "" {
		missing = append(missing, "caseNumber")
	}
	if strings.TrimSpace(m.Court) == "" {
		missing = append(missing, "court")
	}
	if strings.TrimSpace(m.DocumentType) == "" {
		missing = append(missing, "documentType")
	}
	return missing
}

// IsZero reports whether no field has been filled in.
func (m CaseMetadata) IsZero() bool {
	return m == CaseMetadata{}
}

// FiledDocument is a document included in an accepted filing.
type FiledDocument struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType"`
	StoredID string `json:"storedId,omitempty"`
}

// Confirmation acknowledges an accepted filing.
type Confirmation struct {
	Reference     string          `json:"reference"`
	CaseNumber    string          `json:"caseNumber"`
	Court         string          `json:"court"`
	DocumentType  string          `json:"documentType"`
	Description   string          `json:"description,omitempty"`
	DocumentCount int             `json:"documentCount"`
	Documents     []FiledDocument `json:"documents"`
	FiledAt       time.Time       `json:"filedAt"`
	Message       string          `json:"message"`
}

// ConfirmationMessage renders the acknowledgment shown to the filer.
func ConfirmationMessage(caseNumber string, count int) string {
	return fmt.Sprintf("Case %s - %d document(s) filed.", caseNumber, count)
}
