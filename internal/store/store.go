// Package store provides the record store: voter roll lookups plus
// submission persistence and the admin query surface.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/civicpulse/engagement-platform/internal/model"
)

// ListQuery filters and paginates a submission listing.
type ListQuery struct {
	Page     int
	Limit    int
	Status   string
	Category string
	Search   string
}

// VoterQuery filters and paginates a voter listing.
type VoterQuery struct {
	Page     int
	Limit    int
	Search   string
	District string
	Gender   string
}

// KindCounts aggregates per-status totals for one submission kind.
type KindCounts struct {
	Total    int `json:"total"`
	Open     int `json:"open,omitempty"`
	Resolved int `json:"resolved,omitempty"`
	Pending  int `json:"pending,omitempty"`
	Approved int `json:"approved,omitempty"`
}

// DashboardCounts is the aggregate snapshot served to the admin dashboard.
type DashboardCounts struct {
	TotalVoters int        `json:"totalVoters"`
	Grievances  KindCounts `json:"grievances"`
	Suggestions KindCounts `json:"suggestions"`
	Volunteers  KindCounts `json:"volunteers"`
	Subscribers KindCounts `json:"subscribers"`

	RecentGrievances  []model.Submission `json:"recentGrievances"`
	RecentSuggestions []model.Submission `json:"recentSuggestions"`
	RecentVolunteers  []model.Submission `json:"recentVolunteers"`
}

// RecordStore is the persistence boundary shared by the dialogue engine and
// the admin API.
type RecordStore interface {
	FindVoter(ctx context.Context, voterID string) (model.VoterRecord, bool, error)
	ListVoters(ctx context.Context, q VoterQuery) ([]model.VoterRecord, int, error)

	InsertSubmission(ctx context.Context, sub *model.Submission) error
	FindSubscriberByPhone(ctx context.Context, phoneNumber string) (model.Submission, bool, error)
	FindByReference(ctx context.Context, ref string) (model.Submission, bool, error)
	ListSubmissions(ctx context.Context, kind model.SubmissionKind, q ListQuery) ([]model.Submission, int, error)
	UpdateSubmissionStatus(ctx context.Context, kind model.SubmissionKind, id, status, notes string) (bool, error)

	Counts(ctx context.Context) (DashboardCounts, error)
}

// MemoryStore keeps all records in memory (would be replaced with a database
// in production). Voters are loaded once at startup and never mutated.
type MemoryStore struct {
	mu          sync.RWMutex
	voters      map[string]model.VoterRecord
	submissions map[model.SubmissionKind]map[string]*model.Submission
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	subs := make(map[model.SubmissionKind]map[string]*model.Submission)
	for _, kind := range []model.SubmissionKind{
		model.KindGrievance, model.KindSuggestion, model.KindVolunteer, model.KindSubscriber,
	} {
		subs[kind] = make(map[string]*model.Submission)
	}
	return &MemoryStore{
		voters:      make(map[string]model.VoterRecord),
		submissions: subs,
	}
}

// AddVoter inserts a voter-roll record, keyed by the uppercased voter ID.
func (s *MemoryStore) AddVoter(v model.VoterRecord) {
	s.mu.Lock()
	s.voters[strings.ToUpper(v.VoterID)] = v
	s.mu.Unlock()
}

// FindVoter looks up one voter-roll record by ID.
func (s *MemoryStore) FindVoter(ctx context.Context, voterID string) (model.VoterRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.voters[strings.ToUpper(strings.TrimSpace(voterID))]
	return v, ok, nil
}

// ListVoters returns a filtered page of the voter roll and the total match
// count.
func (s *MemoryStore) ListVoters(ctx context.Context, q VoterQuery) ([]model.VoterRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.VoterRecord
	for _, v := range s.voters {
		if q.District != "" && !strings.EqualFold(v.District, q.District) {
			continue
		}
		if q.Gender != "" && !strings.EqualFold(v.Gender, q.Gender) {
			continue
		}
		if q.Search != "" && !containsFold(v.Name, q.Search) && !containsFold(v.VoterID, q.Search) {
			continue
		}
		matched = append(matched, v)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].VoterID < matched[j].VoterID })

	total := len(matched)
	return paginate(matched, q.Page, q.Limit), total, nil
}

// InsertSubmission persists a new submission record.
func (s *MemoryStore) InsertSubmission(ctx context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sub
	s.submissions[sub.Kind][sub.ID] = &copied
	return nil
}

// FindSubscriberByPhone returns an existing subscription for the phone
// number, if any.
func (s *MemoryStore) FindSubscriberByPhone(ctx context.Context, phoneNumber string) (model.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.submissions[model.KindSubscriber] {
		if sub.PhoneNumber == phoneNumber {
			return *sub, true, nil
		}
	}
	return model.Submission{}, false, nil
}

// FindByReference dispatches on the reference code's kind prefix and returns
// the matching record.
func (s *MemoryStore) FindByReference(ctx context.Context, ref string) (model.Submission, bool, error) {
	kind, ok := model.KindForReference(ref)
	if !ok {
		return model.Submission{}, false, nil
	}

	ref = strings.ToUpper(strings.TrimSpace(ref))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.submissions[kind] {
		if sub.ReferenceCode == ref {
			return *sub, true, nil
		}
	}
	return model.Submission{}, false, nil
}

// ListSubmissions returns a filtered page of one kind, newest first, plus the
// total match count.
func (s *MemoryStore) ListSubmissions(ctx context.Context, kind model.SubmissionKind, q ListQuery) ([]model.Submission, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Submission
	for _, sub := range s.submissions[kind] {
		if q.Status != "" && sub.Status != q.Status {
			continue
		}
		if q.Category != "" && sub.Category != q.Category {
			continue
		}
		if q.Search != "" &&
			!containsFold(sub.VoterName, q.Search) &&
			!containsFold(sub.ReferenceCode, q.Search) &&
			!containsFold(sub.Message, q.Search) &&
			!containsFold(sub.PhoneNumber, q.Search) {
			continue
		}
		matched = append(matched, *sub)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	return paginate(matched, q.Page, q.Limit), total, nil
}

// UpdateSubmissionStatus applies a status transition and optional admin
// notes. The returned bool reports whether a record was matched.
func (s *MemoryStore) UpdateSubmissionStatus(ctx context.Context, kind model.SubmissionKind, id, status, notes string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[kind][id]
	if !ok {
		return false, nil
	}

	if status != "" {
		sub.Status = status
		if status == model.StatusResolved {
			now := time.Now().UTC()
			sub.ResolvedAt = &now
		}
	}
	if notes != "" {
		sub.AdminNotes = notes
	}
	sub.UpdatedAt = time.Now().UTC()

	return true, nil
}

// Counts aggregates the dashboard snapshot.
func (s *MemoryStore) Counts(ctx context.Context) (DashboardCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := DashboardCounts{TotalVoters: len(s.voters)}

	counts.Grievances = s.countKind(model.KindGrievance)
	counts.Suggestions = s.countKind(model.KindSuggestion)
	counts.Volunteers = s.countKind(model.KindVolunteer)
	counts.Subscribers = s.countKind(model.KindSubscriber)

	counts.RecentGrievances = s.recent(model.KindGrievance, 5)
	counts.RecentSuggestions = s.recent(model.KindSuggestion, 5)
	counts.RecentVolunteers = s.recent(model.KindVolunteer, 5)

	return counts, nil
}

func (s *MemoryStore) countKind(kind model.SubmissionKind) KindCounts {
	var c KindCounts
	for _, sub := range s.submissions[kind] {
		c.Total++
		switch sub.Status {
		case model.StatusOpen:
			c.Open++
		case model.StatusResolved:
			c.Resolved++
		case model.StatusPending:
			c.Pending++
		case model.StatusApproved:
			c.Approved++
		}
	}
	return c
}

func (s *MemoryStore) recent(kind model.SubmissionKind, n int) []model.Submission {
	var all []model.Submission
	for _, sub := range s.submissions[kind] {
		all = append(all, *sub)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
