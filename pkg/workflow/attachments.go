package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// UploadAttachmentInput describes one incoming file. Content is read to
// completion; the size limit is enforced while reading.
type UploadAttachmentInput struct {
	Filename    string
	ContentType string
	Description string
	Content     io.Reader
}

// UploadAttachment validates the file, writes the blob under the uploads
// root, records metadata plus the timeline event atomically, and fires
// the recompute hook.
func (s *Service) UploadAttachment(ctx context.Context, caseID string, in UploadAttachmentInput, actor contracts.Actor) (*contracts.Attachment, error) {
	ext, ok := contracts.AcceptedAttachmentTypes[in.ContentType]
	if !ok {
		return nil, fault.Newf(fault.KindBadRequest, "unsupported content type %q", in.ContentType)
	}
	if in.Filename == "" {
		return nil, fault.New(fault.KindBadRequest, "filename is required")
	}

	c, _, err := s.loadWritableCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	// Read one byte past the limit so oversize uploads are detected
	// without buffering arbitrarily large bodies.
	data, err := io.ReadAll(io.LimitReader(in.Content, contracts.MaxAttachmentBytes+1))
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "read attachment", err)
	}
	if int64(len(data)) > contracts.MaxAttachmentBytes {
		return nil, fault.Newf(fault.KindBadRequest, "attachment exceeds %d bytes", contracts.MaxAttachmentBytes)
	}
	if len(data) == 0 {
		return nil, fault.New(fault.KindBadRequest, "attachment is empty")
	}

	sum := sha256.Sum256(data)
	att := &contracts.Attachment{
		ID:             contracts.NewAttachmentID(),
		CaseID:         c.ID,
		SubmissionID:   c.SubmissionID,
		Filename:       in.Filename,
		ContentType:    in.ContentType,
		SizeBytes:      int64(len(data)),
		UploadedBy:     actor.ID,
		Description:    in.Description,
		OriginalSHA256: hex.EncodeToString(sum[:]),
		CreatedAt:      s.now().UTC(),
	}
	att.StoragePath = path.Join(c.ID, att.ID+"."+ext)

	blob := s.blobPath(att)
	if err := os.MkdirAll(filepath.Dir(blob), 0o755); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "create uploads directory", err)
	}
	if err := os.WriteFile(blob, data, 0o644); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "write attachment blob", err)
	}

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateAttachment(ctx, att); err != nil {
			return err
		}
		event := contracts.NewEvent(c.ID, contracts.EventAttachmentAdded, actor,
			fmt.Sprintf("attachment added: %s", att.Filename),
			map[string]any{
				"attachment_id": att.ID,
				"filename":      att.Filename,
				"content_type":  att.ContentType,
				"size_bytes":    att.SizeBytes,
			})
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		// Metadata write failed; remove the orphaned blob now rather
		// than waiting for the retention sweep.
		_ = os.Remove(blob)
		return nil, err
	}

	s.hookRecompute(ctx, c.ID, "attachment_uploaded", actor)
	return att, nil
}

// ListAttachments returns a case's attachment metadata, newest-first.
func (s *Service) ListAttachments(ctx context.Context, caseID string) ([]*contracts.Attachment, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	atts, err := s.store.ListAttachments(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if atts == nil {
		atts = []*contracts.Attachment{}
	}
	return atts, nil
}

// OpenAttachment checks the lifecycle flags and opens the blob for
// download, recording the download on the timeline. Deleted attachments
// are Gone; redacted ones are withheld for legal reasons.
func (s *Service) OpenAttachment(ctx context.Context, caseID, attachmentID string, actor contracts.Actor) (*contracts.Attachment, io.ReadCloser, error) {
	att, err := s.attachmentForCase(ctx, caseID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if att.IsDeleted {
		return nil, nil, fault.New(fault.KindGone, "attachment has been deleted")
	}
	if att.IsRedacted {
		return nil, nil, fault.New(fault.KindUnavailableForLegalReasons, "attachment has been redacted")
	}

	f, err := os.Open(s.blobPath(att))
	if err != nil {
		return nil, nil, fault.Wrap(fault.KindInternal, "open attachment blob", err)
	}

	event := contracts.NewEvent(caseID, contracts.EventAttachmentDownload, actor,
		fmt.Sprintf("attachment downloaded: %s", att.Filename),
		map[string]any{"attachment_id": att.ID})
	if err := s.store.AppendEvent(ctx, event); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return att, f, nil
}

// DeleteAttachment soft-deletes an attachment. The blob survives until
// the retention sweep.
func (s *Service) DeleteAttachment(ctx context.Context, caseID, attachmentID, reason string, actor contracts.Actor) error {
	if _, _, err := s.loadWritableCase(ctx, caseID); err != nil {
		return err
	}
	att, err := s.attachmentForCase(ctx, caseID, attachmentID)
	if err != nil {
		return err
	}
	if att.IsDeleted {
		return fault.New(fault.KindConflict, "attachment is already deleted")
	}

	now := s.now().UTC()
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.MarkAttachmentDeleted(ctx, attachmentID, actor.ID, reason, now); err != nil {
			return err
		}
		event := contracts.NewEvent(caseID, contracts.EventEvidenceRemoved, actor,
			fmt.Sprintf("attachment deleted: %s", att.Filename),
			map[string]any{"attachment_id": att.ID, "reason": reason})
		return tx.AppendEvent(ctx, event)
	})
}

// RedactAttachment flags an attachment as redacted; downloads then fail
// with UnavailableForLegalReasons.
func (s *Service) RedactAttachment(ctx context.Context, caseID, attachmentID, reason string, actor contracts.Actor) error {
	if _, _, err := s.loadWritableCase(ctx, caseID); err != nil {
		return err
	}
	att, err := s.attachmentForCase(ctx, caseID, attachmentID)
	if err != nil {
		return err
	}
	if att.IsRedacted {
		return fault.New(fault.KindConflict, "attachment is already redacted")
	}

	now := s.now().UTC()
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.MarkAttachmentRedacted(ctx, attachmentID, actor.ID, reason, now); err != nil {
			return err
		}
		event := contracts.NewEvent(caseID, contracts.EventEvidenceRedacted, actor,
			fmt.Sprintf("attachment redacted: %s", att.Filename),
			map[string]any{"attachment_id": att.ID, "reason": reason})
		return tx.AppendEvent(ctx, event)
	})
}

// blobPath resolves an attachment's root-relative storage path to its
// location on disk.
func (s *Service) blobPath(att *contracts.Attachment) string {
	return filepath.Join(s.uploadsRoot, filepath.FromSlash(att.StoragePath))
}

func (s *Service) attachmentForCase(ctx context.Context, caseID, attachmentID string) (*contracts.Attachment, error) {
	att, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if att.CaseID != caseID {
		return nil, fault.NotFound("attachment")
	}
	return att, nil
}
