// ABOUTME: Tests for the per-identity content store
// ABOUTME: Covers upserts, show_content preservation, display resolution, and delete fan-out

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestContentStore(t *testing.T) *ContentStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "content.db")
	s, err := NewContentStore(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("NewContentStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAccount(id string) *Account {
	return &Account{ID: id, Username: "author-" + id, DisplayName: "Author " + id}
}

func testStatus(id, accountID string) *Status {
	return &Status{
		ID:         id,
		AccountID:  accountID,
		URI:        "https://example.social/statuses/" + id,
		CreatedAt:  time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		Content:    "<p>hello</p>",
		Visibility: VisibilityPublic,
	}
}

func mustUpsertStatus(t *testing.T, s *ContentStore, account *Account, status *Status) {
	t.Helper()
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertAccount(ctx, account); err != nil {
			return err
		}
		return tx.UpsertStatus(ctx, status)
	})
	if err != nil {
		t.Fatalf("upserting status %s: %v", status.ID, err)
	}
}

func TestUpsertAndGetStatus(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	mustUpsertStatus(t, s, testAccount("a1"), testStatus("42", "a1"))

	got, err := s.GetStatus(ctx, "42")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if got.Content != "<p>hello</p>" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.AccountID != "a1" {
		t.Errorf("AccountID = %q", got.AccountID)
	}
	if !got.ShowContent {
		t.Error("ShowContent = false, want true for non-sensitive status")
	}
}

func TestGetStatus_NotFound(t *testing.T) {
	s := newTestContentStore(t)

	_, err := s.GetStatus(context.Background(), "nope")
	if err != ErrNotFound {
		t.Errorf("GetStatus error = %v, want ErrNotFound", err)
	}
}

func TestUpsertStatus_SensitiveDefaultsHidden(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	status := testStatus("42", "a1")
	status.Sensitive = true
	status.SpoilerText = "cw: test"
	mustUpsertStatus(t, s, testAccount("a1"), status)

	got, err := s.GetStatus(ctx, "42")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if got.ShowContent {
		t.Error("ShowContent = true, want false for sensitive status")
	}
}

func TestUpsertStatus_PreservesShowContent(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	status := testStatus("42", "a1")
	status.Sensitive = true
	mustUpsertStatus(t, s, testAccount("a1"), status)

	// User reveals the content locally
	if err := s.SetStatusShowContent(ctx, "42", true); err != nil {
		t.Fatalf("SetStatusShowContent failed: %v", err)
	}

	// A fresh snapshot arrives; remote fields update, local state survives
	status.Content = "<p>edited</p>"
	status.FavouritesCount = 7
	mustUpsertStatus(t, s, testAccount("a1"), status)

	got, err := s.GetStatus(ctx, "42")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if got.Content != "<p>edited</p>" {
		t.Errorf("Content = %q, want edited", got.Content)
	}
	if got.FavouritesCount != 7 {
		t.Errorf("FavouritesCount = %d, want 7", got.FavouritesCount)
	}
	if !got.ShowContent {
		t.Error("ShowContent = false, merge must not clobber local reveal")
	}
}

func TestUpsertAccount_UpdatesInPlace(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	mustUpsertStatus(t, s, testAccount("a1"), testStatus("42", "a1"))

	// Re-merging the author must not trip the statuses foreign key
	updated := testAccount("a1")
	updated.DisplayName = "Renamed"
	if err := s.UpsertAccount(ctx, updated); err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}

	got, err := s.GetAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got.DisplayName != "Renamed" {
		t.Errorf("DisplayName = %q", got.DisplayName)
	}

	if _, err := s.GetStatus(ctx, "42"); err != nil {
		t.Errorf("status lost after author update: %v", err)
	}
}

func TestDisplayStatus_ResolvesReblogWrapper(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	target := testStatus("target", "a1")
	target.Favourited = true
	mustUpsertStatus(t, s, testAccount("a1"), target)

	wrapperID := "wrapper"
	targetID := "target"
	wrapper := testStatus(wrapperID, "a2")
	wrapper.ReblogOfID = &targetID
	mustUpsertStatus(t, s, testAccount("a2"), wrapper)

	display, err := s.DisplayStatus(ctx, wrapperID)
	if err != nil {
		t.Fatalf("DisplayStatus failed: %v", err)
	}
	if display.ID != "target" {
		t.Errorf("display.ID = %q, want target", display.ID)
	}
	if !display.Favourited {
		t.Error("display.Favourited = false, engagement lives on the target")
	}

	// A plain status resolves to itself
	display, err = s.DisplayStatus(ctx, "target")
	if err != nil {
		t.Fatalf("DisplayStatus failed: %v", err)
	}
	if display.ID != "target" {
		t.Errorf("display.ID = %q, want target", display.ID)
	}
}

func TestUpsertPoll_ReplacesWholesale(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	voters := 10
	first := &Poll{
		ID:          "p1",
		Multiple:    false,
		VotesCount:  10,
		VotersCount: &voters,
		Options: []PollOption{
			{Title: "yes", VotesCount: 6},
			{Title: "no", VotesCount: 4},
		},
	}
	if err := s.UpsertPoll(ctx, first); err != nil {
		t.Fatalf("UpsertPoll failed: %v", err)
	}

	second := &Poll{
		ID:         "p1",
		VotesCount: 12,
		Voted:      true,
		OwnVotes:   []int{0},
		Options: []PollOption{
			{Title: "yes", VotesCount: 8},
			{Title: "no", VotesCount: 4},
		},
	}
	if err := s.UpsertPoll(ctx, second); err != nil {
		t.Fatalf("UpsertPoll replace failed: %v", err)
	}

	got, err := s.GetPoll(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if got.VotesCount != 12 {
		t.Errorf("VotesCount = %d, want 12", got.VotesCount)
	}
	if !got.Voted {
		t.Error("Voted = false, want true")
	}
	if len(got.OwnVotes) != 1 || got.OwnVotes[0] != 0 {
		t.Errorf("OwnVotes = %v", got.OwnVotes)
	}
	if got.VotersCount != nil {
		t.Errorf("VotersCount = %v, want nil after wholesale replace", *got.VotersCount)
	}
	if len(got.Options) != 2 || got.Options[0].VotesCount != 8 {
		t.Errorf("Options = %+v", got.Options)
	}
}

func TestReplaceAttachments_Order(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	mustUpsertStatus(t, s, testAccount("a1"), testStatus("42", "a1"))

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceAttachments(ctx, "42", []*Attachment{
			{ID: "m2", Type: "image", URL: "https://example.social/m2.png"},
			{ID: "m1", Type: "video", URL: "https://example.social/m1.mp4"},
		})
	})
	if err != nil {
		t.Fatalf("ReplaceAttachments failed: %v", err)
	}

	attachments, err := s.GetStatusAttachments(ctx, "42")
	if err != nil {
		t.Fatalf("GetStatusAttachments failed: %v", err)
	}
	if len(attachments) != 2 {
		t.Fatalf("got %d attachments, want 2", len(attachments))
	}
	if attachments[0].ID != "m2" || attachments[1].ID != "m1" {
		t.Errorf("attachment order = %q, %q", attachments[0].ID, attachments[1].ID)
	}

	// Replacing swaps the whole set
	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceAttachments(ctx, "42", []*Attachment{
			{ID: "m3", Type: "image", URL: "https://example.social/m3.png"},
		})
	})
	if err != nil {
		t.Fatalf("ReplaceAttachments failed: %v", err)
	}

	attachments, err = s.GetStatusAttachments(ctx, "42")
	if err != nil {
		t.Fatalf("GetStatusAttachments failed: %v", err)
	}
	if len(attachments) != 1 || attachments[0].ID != "m3" {
		t.Errorf("attachments after replace = %+v", attachments)
	}
}

func TestDeleteStatus_FanOut(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	// Target with a poll and attachments, plus a reblog wrapper pointing at it
	pollID := "p1"
	if err := s.UpsertPoll(ctx, &Poll{ID: pollID, Options: []PollOption{{Title: "yes"}}}); err != nil {
		t.Fatalf("UpsertPoll failed: %v", err)
	}

	target := testStatus("target", "a1")
	target.PollID = &pollID
	mustUpsertStatus(t, s, testAccount("a1"), target)

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceAttachments(ctx, "target", []*Attachment{
			{ID: "m1", Type: "image", URL: "https://example.social/m1.png"},
		})
	})
	if err != nil {
		t.Fatalf("ReplaceAttachments failed: %v", err)
	}

	targetID := "target"
	wrapper := testStatus("wrapper", "a2")
	wrapper.ReblogOfID = &targetID
	mustUpsertStatus(t, s, testAccount("a2"), wrapper)

	if err := s.DeleteStatus(ctx, "target"); err != nil {
		t.Fatalf("DeleteStatus failed: %v", err)
	}

	if _, err := s.GetStatus(ctx, "target"); err != ErrNotFound {
		t.Errorf("target after delete error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetStatus(ctx, "wrapper"); err != ErrNotFound {
		t.Errorf("wrapper after delete error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetPoll(ctx, "p1"); err != ErrNotFound {
		t.Errorf("poll after delete error = %v, want ErrNotFound", err)
	}

	attachments, err := s.GetStatusAttachments(ctx, "target")
	if err != nil {
		t.Fatalf("GetStatusAttachments failed: %v", err)
	}
	if len(attachments) != 0 {
		t.Errorf("got %d attachments after delete, want 0", len(attachments))
	}
}

func TestDeleteStatus_KeepsSharedPoll(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	pollID := "p1"
	if err := s.UpsertPoll(ctx, &Poll{ID: pollID}); err != nil {
		t.Fatalf("UpsertPoll failed: %v", err)
	}

	first := testStatus("s1", "a1")
	first.PollID = &pollID
	mustUpsertStatus(t, s, testAccount("a1"), first)

	second := testStatus("s2", "a1")
	second.PollID = &pollID
	mustUpsertStatus(t, s, testAccount("a1"), second)

	if err := s.DeleteStatus(ctx, "s1"); err != nil {
		t.Fatalf("DeleteStatus failed: %v", err)
	}

	// Another status still references the poll; it stays
	if _, err := s.GetPoll(ctx, "p1"); err != nil {
		t.Errorf("shared poll removed: %v", err)
	}
}

func TestDeleteStatus_NotFound(t *testing.T) {
	s := newTestContentStore(t)

	if err := s.DeleteStatus(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("DeleteStatus error = %v, want ErrNotFound", err)
	}
}

func TestSetStatusShowContent_NotFound(t *testing.T) {
	s := newTestContentStore(t)

	if err := s.SetStatusShowContent(context.Background(), "nope", true); err != ErrNotFound {
		t.Errorf("SetStatusShowContent error = %v, want ErrNotFound", err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestContentStore(t)
	ctx := context.Background()

	mustUpsertStatus(t, s, testAccount("a1"), testStatus("42", "a1"))

	boom := errors.New("boom")
	failErr := s.WithTx(ctx, func(tx *Tx) error {
		status := testStatus("43", "a1")
		if err := tx.UpsertStatus(ctx, status); err != nil {
			return err
		}
		return boom // any error aborts the whole transaction
	})
	if failErr != boom {
		t.Fatalf("WithTx error = %v, want boom", failErr)
	}

	if _, err := s.GetStatus(ctx, "43"); err != ErrNotFound {
		t.Errorf("status 43 visible after rollback: error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetStatus(ctx, "42"); err != nil {
		t.Errorf("status 42 lost: %v", err)
	}
}

func TestContentDBPath(t *testing.T) {
	got := ContentDBPath("/data", "id-1")
	want := filepath.Join("/data", "content-id-1.db")
	if got != want {
		t.Errorf("ContentDBPath = %q, want %q", got, want)
	}
}
