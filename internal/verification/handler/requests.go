package handler

import (
	"strings"

	"verigate/internal/verification/models"
	"verigate/internal/verification/service"
	dErrors "verigate/pkg/domain-errors"
	pstrings "verigate/pkg/platform/strings"
	"verigate/pkg/platform/validation"
)

// PersonalInfoRequest is the body of PUT /kyc/personal-info.
type PersonalInfoRequest struct {
	FullName           string `json:"full_name" validate:"required,max=200"`
	DateOfBirth        string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	PhoneNumber        string `json:"phone_number" validate:"required,max=32"`
	ResidentialAddress string `json:"residential_address" validate:"required,max=500"`
}

func (r *PersonalInfoRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.FullName = strings.TrimSpace(r.FullName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.ResidentialAddress = strings.TrimSpace(r.ResidentialAddress)
	return validation.Struct(r)
}

func (r *PersonalInfoRequest) Input() service.PersonalInfoInput {
	return service.PersonalInfoInput{
		FullName:           r.FullName,
		DateOfBirth:        r.DateOfBirth,
		PhoneNumber:        r.PhoneNumber,
		ResidentialAddress: r.ResidentialAddress,
	}
}

// UploadDocumentRequest is the body of POST /kyc/documents. Evidence refs
// point at files already stored by the upstream uploader.
type UploadDocumentRequest struct {
	Type           string   `json:"type" validate:"required"`
	EvidenceRefs   []string `json:"evidence_refs" validate:"required,min=1,max=10,dive,required,max=512"`
	DocumentNumber string   `json:"document_number,omitempty" validate:"omitempty,max=64"`

	parsedType models.DocumentType
}

func (r *UploadDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.TrimSpace(r.Type)
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.EvidenceRefs = pstrings.DedupeAndTrim(r.EvidenceRefs)
	if err := validation.Struct(r); err != nil {
		return err
	}
	t, err := models.ParseDocumentType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = t
	return nil
}

func (r *UploadDocumentRequest) Input() service.UploadInput {
	return service.UploadInput{
		Type:           r.parsedType,
		EvidenceRefs:   r.EvidenceRefs,
		DocumentNumber: r.DocumentNumber,
	}
}

// RejectRequest is the body of POST /review/documents/{id}/reject. The
// reason length is enforced by the service.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Reason) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 1000 characters")
	}
	return nil
}
