package models

// Machine-readable reasons carried on domain errors. Clients branch on these.
const (
	ReasonUnknownRole         = "unknown_role"
	ReasonUnknownDocumentType = "unknown_document_type"
	ReasonAlreadyRegistered   = "already_registered"
	ReasonNotRegistered       = "not_registered"
	ReasonNotVerified         = "not_verified"
	ReasonAlreadySubmitted    = "already_submitted"
	ReasonReplacementRequired = "replacement_required"
	ReasonIncompleteProfile   = "incomplete_profile"
	ReasonAlreadyReviewed     = "already_reviewed"
	ReasonAlreadyApproved     = "already_approved"
	ReasonReasonTooShort      = "reason_too_short"
	ReasonStaleEvaluation     = "stale_evaluation"
)

// Remediation routes returned with authorization failures.
const (
	RouteRegister        = "register"
	RouteCompleteProfile = "complete_profile"
	RouteAwaitReview     = "await_review"
	RouteResubmit        = "resubmit"
)
