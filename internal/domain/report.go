package domain

import (
	"time"
)

// ReportReason enumerates why a review was flagged.
type ReportReason string

const (
	ReportReasonSpam                  ReportReason = "SPAM"
	ReportReasonInappropriateLanguage ReportReason = "INAPPROPRIATE_LANGUAGE"
	ReportReasonFakeReview            ReportReason = "FAKE_REVIEW"
	ReportReasonHarassment            ReportReason = "HARASSMENT"
	ReportReasonCopyrightViolation    ReportReason = "COPYRIGHT_VIOLATION"
	ReportReasonOther                 ReportReason = "OTHER"
)

// ReportStatus is the adjudication state of a report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusApproved ReportStatus = "APPROVED"
	ReportStatusRejected ReportStatus = "REJECTED"
)

// Adjudication decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// Report is a visitor complaint against a review. ReviewID is kept after the
// review is deleted so the report history survives.
type Report struct {
	ID            string       `json:"id"`
	ReviewID      string       `json:"review_id"`
	Reason        ReportReason `json:"reason"`
	Description   string       `json:"description"`
	ReporterEmail *string      `json:"reporter_email,omitempty"`
	Status        ReportStatus `json:"status"`
	ResolvedBy    *string      `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// ValidReportReasons returns every report reason.
func ValidReportReasons() []ReportReason {
	return []ReportReason{
		ReportReasonSpam,
		ReportReasonInappropriateLanguage,
		ReportReasonFakeReview,
		ReportReasonHarassment,
		ReportReasonCopyrightViolation,
		ReportReasonOther,
	}
}

// IsValid checks r against the enumerated reasons.
func (r ReportReason) IsValid() bool {
	for _, v := range ValidReportReasons() {
		if v == r {
			return true
		}
	}
	return false
}

// IsValid checks s against the report statuses.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusPending, ReportStatusApproved, ReportStatusRejected:
		return true
	}
	return false
}

// StatusForDecision maps an adjudication decision to the resulting status.
func StatusForDecision(decision string) (ReportStatus, bool) {
	switch decision {
	case DecisionApprove:
		return ReportStatusApproved, true
	case DecisionReject:
		return ReportStatusRejected, true
	}
	return "", false
}
