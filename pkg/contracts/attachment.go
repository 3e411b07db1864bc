package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Attachment upload limits. Blobs live on the filesystem; only metadata
// is stored relationally.
const (
	MaxAttachmentBytes = 10 << 20 // 10 MiB
)

// AcceptedAttachmentTypes maps allowed content types to the blob file
// extension used under the uploads root.
var AcceptedAttachmentTypes = map[string]string{
	"application/pdf": "pdf",
	"image/jpeg":      "jpg",
	"image/png":       "png",
}

// Attachment is file metadata for a case upload. StoragePath is relative
// to the uploads root, slash-separated. Deletion and redaction are soft
// flags; the physical file is retained until the retention sweep.
type Attachment struct {
	ID           string `json:"id"`
	CaseID       string `json:"case_id"`
	SubmissionID string `json:"submission_id,omitempty"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	StoragePath  string `json:"storage_path"`
	UploadedBy   string `json:"uploaded_by,omitempty"`
	Description  string `json:"description,omitempty"`

	IsDeleted    bool       `json:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	DeletedBy    string     `json:"deleted_by,omitempty"`
	DeleteReason string     `json:"delete_reason,omitempty"`

	IsRedacted   bool       `json:"is_redacted"`
	RedactedAt   *time.Time `json:"redacted_at,omitempty"`
	RedactedBy   string     `json:"redacted_by,omitempty"`
	RedactReason string     `json:"redact_reason,omitempty"`

	OriginalSHA256 string    `json:"original_sha256"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAttachmentID mints an attachment identifier.
func NewAttachmentID() string { return "att-" + uuid.New().String() }
