package models

import "github.com/google/uuid"

// MutationResult is the platform's reply to a state-changing call (submit,
// acknowledge-rejection, clear-pending).
type MutationResult struct {
	Success       bool       `json:"success"`
	Message       string     `json:"message"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
}

// UploadResult is the platform's reply to a document upload. FilePath feeds
// into the subsequent submission payload.
type UploadResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
}

// SubmissionForm carries the fields of a lawyer application submission. The
// two path fields reference files previously uploaded through the upload
// endpoints.
type SubmissionForm struct {
	FullName        string `json:"full_name"`
	RollNumber      string `json:"roll_number"`
	RollSigningDate string `json:"roll_signing_date"`
	IDCardPath      string `json:"id_card_path"`
	SelfiePath      string `json:"selfie_path"`
}
