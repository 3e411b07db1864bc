package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSubmission() *contracts.Submission {
	return &contracts.Submission{
		ID:           contracts.NewSubmissionID(),
		DecisionType: "csf",
		SubmittedBy:  "dr.smith@example.com",
		FormData:     map[string]any{"name": "Dr. Smith", "state": "OH"},
		Status:       contracts.SubmissionSubmitted,
		CreatedAt:    time.Now().UTC(),
	}
}

func testCase(submissionID string) *contracts.Case {
	now := time.Now().UTC()
	return &contracts.Case{
		ID:                contracts.NewCaseID(),
		SubmissionID:      submissionID,
		DecisionType:      "csf",
		Title:             "csf review: Dr. Smith",
		Status:            contracts.CaseNew,
		DueAt:             now.Add(24 * time.Hour),
		PacketEvidenceIDs: []string{},
		SearchableText:    contracts.BuildSearchableText("csf review: Dr. Smith", "csf"),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestSubmissionRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sub := testSubmission()
	require.NoError(t, s.CreateSubmission(ctx, sub))

	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, "Dr. Smith", got.FormData["name"])
	assert.Equal(t, contracts.SubmissionSubmitted, got.Status)

	got.Status = contracts.SubmissionCancelled
	require.NoError(t, s.UpdateSubmission(ctx, got))
	again, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.SubmissionCancelled, again.Status)
}

func TestGetSubmission_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetSubmission(context.Background(), "sub-missing")
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestCreateSubmission_DuplicateIsConflict(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sub := testSubmission()
	require.NoError(t, s.CreateSubmission(ctx, sub))
	err := s.CreateSubmission(ctx, sub)
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestCaseRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sub := testSubmission()
	require.NoError(t, s.CreateSubmission(ctx, sub))
	c := testCase(sub.ID)
	require.NoError(t, s.CreateCase(ctx, c))

	got, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Title, got.Title)
	assert.Equal(t, []string{}, got.PacketEvidenceIDs)
	assert.WithinDuration(t, c.DueAt, got.DueAt, time.Second)

	bySub, err := s.GetCaseBySubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, bySub.ID)
}

func TestUpdateCase_DueAtImmutable(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := testCase("")
	require.NoError(t, s.CreateCase(ctx, c))
	originalDue := c.DueAt

	c.Title = "renamed"
	c.DueAt = c.DueAt.Add(100 * time.Hour)
	require.NoError(t, s.UpdateCase(ctx, c))

	got, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.WithinDuration(t, originalDue, got.DueAt, time.Second)
}

func TestListCases_Filters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	overdueCase := testCase("")
	overdueCase.Status = contracts.CaseInReview
	overdueCase.AssignedTo = "reviewer-1"
	overdueCase.DueAt = now.Add(-time.Hour)
	overdueCase.SearchableText = contracts.BuildSearchableText("overdue case", "csf", "Dr. Lagging")
	require.NoError(t, s.CreateCase(ctx, overdueCase))

	freshCase := testCase("")
	freshCase.CreatedAt = now.Add(time.Second)
	freshCase.UpdatedAt = freshCase.CreatedAt
	require.NoError(t, s.CreateCase(ctx, freshCase))

	closedLate := testCase("")
	closedLate.Status = contracts.CaseClosed
	closedLate.DueAt = now.Add(-time.Hour)
	require.NoError(t, s.CreateCase(ctx, closedLate))

	all, err := s.ListCases(ctx, CaseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// Newest-first by created_at.
	assert.Equal(t, freshCase.ID, all[0].ID)

	byStatus, err := s.ListCases(ctx, CaseFilter{Status: contracts.CaseInReview})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, overdueCase.ID, byStatus[0].ID)

	byAssignee, err := s.ListCases(ctx, CaseFilter{AssignedTo: "reviewer-1"})
	require.NoError(t, err)
	assert.Len(t, byAssignee, 1)

	unassigned, err := s.ListCases(ctx, CaseFilter{Unassigned: true})
	require.NoError(t, err)
	assert.Len(t, unassigned, 2)

	overdue, err := s.ListCases(ctx, CaseFilter{Overdue: true, Now: now})
	require.NoError(t, err)
	require.Len(t, overdue, 1, "terminal cases are never overdue")
	assert.Equal(t, overdueCase.ID, overdue[0].ID)

	search, err := s.ListCases(ctx, CaseFilter{Query: "Dr. Lagging"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, overdueCase.ID, search[0].ID)

	limited, err := s.ListCases(ctx, CaseFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestEvidenceAndPacketFlags(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := testCase("")
	require.NoError(t, s.CreateCase(ctx, c))

	first := &contracts.EvidenceItem{
		ID: contracts.NewEvidenceID(), CaseID: c.ID, Title: "board lookup",
		Tags: []string{"registry"}, CreatedAt: time.Now().UTC(),
	}
	second := &contracts.EvidenceItem{
		ID: contracts.NewEvidenceID(), CaseID: c.ID, Title: "license scan",
		CreatedAt: time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, s.CreateEvidence(ctx, first))
	require.NoError(t, s.CreateEvidence(ctx, second))

	items, err := s.ListEvidence(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID, "evidence is listed oldest-first")
	assert.Equal(t, []string{"registry"}, items[0].Tags)

	require.NoError(t, s.SetEvidencePacketFlags(ctx, c.ID, []string{second.ID}))
	items, err = s.ListEvidence(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, items[0].IncludedInPacket)
	assert.True(t, items[1].IncludedInPacket)
}

func TestEvents_NewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := testCase("")
	require.NoError(t, s.CreateCase(ctx, c))

	base := time.Now().UTC()
	for i, msg := range []string{"first", "second", "third"} {
		e := contracts.NewEvent(c.ID, contracts.EventNoteAdded, contracts.SystemActor, msg, nil)
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.AppendEvent(ctx, e))
	}

	events, err := s.ListEvents(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "third", events[0].Message)

	limited, err := s.ListEvents(ctx, c.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestHistory_AppendAndOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := testCase("")
	require.NoError(t, s.CreateCase(ctx, c))

	base := time.Now().UTC()
	var prev string
	ids := make([]string, 3)
	for i := range ids {
		entry := &contracts.IntelligenceEntry{
			ID:              contracts.NewIntelligenceRunID(),
			CaseID:          c.ID,
			ComputedAt:      base.Add(time.Duration(i) * 5 * time.Second),
			ConfidenceScore: 100,
			ConfidenceBand:  contracts.BandHigh,
			Trigger:         contracts.TriggerManual,
			ActorRole:       contracts.RoleSystem,
			InputHash:       "hash",
			PreviousRunID:   prev,
			Payload:         map[string]any{"decision": "recommend_approve"},
		}
		require.NoError(t, s.AppendHistory(ctx, entry))
		ids[i] = entry.ID
		prev = entry.ID
	}

	latest, err := s.LatestHistory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)
	assert.Equal(t, ids[1], latest.PreviousRunID)

	newestFirst, err := s.ListHistory(ctx, c.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, newestFirst, 3)
	assert.Equal(t, ids[2], newestFirst[0].ID)

	oldestFirst, err := s.ListHistory(ctx, c.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, ids[0], oldestFirst[0].ID)
	assert.Equal(t, "recommend_approve", oldestFirst[0].Payload["decision"])
}

func TestLatestHistory_Empty(t *testing.T) {
	s := testStore(t)
	_, err := s.LatestHistory(context.Background(), "case-none")
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestAttachmentFlags(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := testCase("")
	require.NoError(t, s.CreateCase(ctx, c))

	att := &contracts.Attachment{
		ID: contracts.NewAttachmentID(), CaseID: c.ID,
		Filename: "license.pdf", ContentType: "application/pdf",
		SizeBytes: 1024, StoragePath: c.ID + "/att.pdf",
		OriginalSHA256: "abc", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateAttachment(ctx, att))

	now := time.Now().UTC()
	require.NoError(t, s.MarkAttachmentDeleted(ctx, att.ID, "admin-1", "wrong case", now))

	got, err := s.GetAttachment(ctx, att.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, "admin-1", got.DeletedBy)
	assert.Equal(t, "wrong case", got.DeleteReason)

	expired, err := s.ListDeletedAttachmentsBefore(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, expired, 1)

	exists, err := s.AttachmentExists(ctx, att.StoragePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteCase_Cascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := testCase("")
	require.NoError(t, s.CreateCase(ctx, c))
	require.NoError(t, s.CreateEvidence(ctx, &contracts.EvidenceItem{
		ID: contracts.NewEvidenceID(), CaseID: c.ID, Title: "x", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.AppendEvent(ctx, contracts.NewEvent(c.ID, contracts.EventCaseCreated, contracts.SystemActor, "x", nil)))
	require.NoError(t, s.AppendHistory(ctx, &contracts.IntelligenceEntry{
		ID: contracts.NewIntelligenceRunID(), CaseID: c.ID, ComputedAt: time.Now().UTC(),
		ConfidenceScore: 5, ConfidenceBand: contracts.BandLow,
		Trigger: contracts.TriggerManual, ActorRole: contracts.RoleSystem, InputHash: "h",
	}))

	require.NoError(t, s.DeleteCase(ctx, c.ID))

	_, err := s.GetCase(ctx, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
	items, err := s.ListEvidence(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	events, err := s.ListEvents(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	entries, err := s.ListHistory(ctx, c.ID, true, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := testCase("")
	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.CreateCase(ctx, c); err != nil {
			return err
		}
		return fault.New(fault.KindInternal, "forced failure")
	})
	require.Error(t, err)

	_, err = s.GetCase(ctx, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestRebind_Postgres(t *testing.T) {
	q := &queries{driver: "postgres"}
	assert.Equal(t, "SELECT * FROM cases WHERE id = $1 AND status = $2",
		q.rebind("SELECT * FROM cases WHERE id = ? AND status = ?"))

	sqlite := &queries{driver: "sqlite"}
	assert.Equal(t, "SELECT ?", sqlite.rebind("SELECT ?"))
}

func TestGetSubmission_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := &Store{queries: queries{q: db, driver: "postgres"}, db: db}

	mock.ExpectQuery(`(?s)SELECT .+ FROM submissions WHERE id = \$1`).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "decision_type", "submitted_by", "account_id", "location_id",
			"form_data", "raw_payload", "evaluator_output", "status", "created_at",
		}).AddRow("sub-1", "csf", "x", nil, nil,
			`{"name":"Dr. Smith"}`, nil, nil, "submitted", "2026-03-01T12:00:00Z"))

	sub, err := s.GetSubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Smith", sub.FormData["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapWriteErr(t *testing.T) {
	assert.NoError(t, mapWriteErr("op", nil))
	assert.True(t, fault.IsKind(mapWriteErr("op", assert.AnError), fault.KindInternal))
	assert.True(t, fault.IsKind(
		mapWriteErr("op", errUniqueViolation{}), fault.KindConflict))
}

type errUniqueViolation struct{}

func (errUniqueViolation) Error() string { return `pq: duplicate key value violates unique constraint` }
