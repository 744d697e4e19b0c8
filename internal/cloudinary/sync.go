// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cloudinary

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"reelsync/internal/model"
)

// Uploader is the part of the upload client the syncer needs. Satisfied
// by *Client.
type Uploader interface {
	UploadFromURL(ctx context.Context, sourceURL, publicID string) (*UploadResult, error)
}

// Syncer decides, per image slot, whether an upload is needed and
// maintains the attachment-id to CDN-URL mapping across runs.
type Syncer struct {
	uploader Uploader
	logger   *slog.Logger

	uploaded int
	failed   int
}

// NewSyncer creates a Syncer.
func NewSyncer(uploader Uploader, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{uploader: uploader, logger: logger}
}

// Uploaded returns the number of successful uploads so far.
func (s *Syncer) Uploaded() int { return s.uploaded }

// Failed returns the number of failed uploads so far.
func (s *Syncer) Failed() int { return s.failed }

// SyncRecord reconciles one record's attachments against the mapping
// recorded by the previous run. A slot whose stable attachment ID is
// unchanged is copied forward without any network call; a new or
// changed ID triggers exactly one upload attempt. Upload failures are
// recorded per slot and never abort the run.
func (s *Syncer) SyncRecord(ctx context.Context, recordID string, attachments []model.Attachment, prev []model.ImageRef) []model.ImageRef {
	prevBySlot := make(map[int]model.ImageRef, len(prev))
	for _, ref := range prev {
		prevBySlot[ref.Index] = ref
	}

	refs := make([]model.ImageRef, 0, len(attachments))
	for i, att := range attachments {
		if old, ok := prevBySlot[i]; ok && old.SourceAttachmentID == att.ID && old.Error == "" {
			refs = append(refs, old)
			continue
		}
		refs = append(refs, s.uploadSlot(ctx, recordID, i, att))
	}
	return refs
}

func (s *Syncer) uploadSlot(ctx context.Context, recordID string, index int, att model.Attachment) model.ImageRef {
	ref := model.ImageRef{
		Index:              index,
		SourceAttachmentID: att.ID,
		SourceURL:          att.URL,
	}

	result, err := s.uploader.UploadFromURL(ctx, att.URL, PublicID(recordID, index))
	if err != nil {
		s.failed++
		ref.Error = err.Error()
		s.logger.Warn("image upload failed, renderers will fall back to source URL",
			"record", recordID, "slot", index, "error", err)
		return ref
	}

	s.uploaded++
	ref.PublicID = result.PublicID
	ref.URL = result.SecureURL
	return ref
}

var publicIDUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// PublicID derives the deterministic CDN identifier for one image slot.
// Distinct slots always target distinct IDs, so uploads are independent.
func PublicID(recordID string, index int) string {
	clean := publicIDUnsafe.ReplaceAllString(strings.TrimSpace(recordID), "-")
	return fmt.Sprintf("%s-%d", clean, index)
}
