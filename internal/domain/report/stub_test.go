package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alertavecinal/alerta-api/internal/domain/notification"
)

// memRemote is an in-memory RemoteStore. failing makes every call return
// a network error, simulating a remote outage.
type memRemote struct {
	mu            sync.Mutex
	reports       map[uuid.UUID]*Report
	history       []*HistoryEntry
	notifications []*notification.Notification

	failing     bool
	failHistory bool
	failNotify  bool
}

func newMemRemote() *memRemote {
	return &memRemote{reports: make(map[uuid.UUID]*Report)}
}

func (m *memRemote) networkErr() error {
	return fmt.Errorf("%w: connection refused", ErrNetwork)
}

func (m *memRemote) PutReport(ctx context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return m.networkErr()
	}
	m.reports[r.ID] = r.Clone()
	return nil
}

func (m *memRemote) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, m.networkErr()
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *memRemote) QueryReports(ctx context.Context) ([]*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, m.networkErr()
	}
	out := make([]*Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRemote) PatchReport(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return m.networkErr()
	}
	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			s, _ := ParseStatus(v.(string))
			r.Status = s
		case "approvedBy":
			s := v.(string)
			r.ApprovedBy = &s
		case "rejectionReason":
			s := v.(string)
			r.RejectionReason = &s
		case "moderatorComment":
			s := v.(string)
			r.ModeratorComment = &s
		case "title":
			r.Title = v.(string)
		case "description":
			r.Description = v.(string)
		case "reportType":
			t, _ := ParseReportType(v.(string))
			r.Type = t
		case "address":
			s := v.(string)
			r.Address = &s
		case "editedBy":
			s := v.(string)
			r.EditedBy = &s
		case "updatedAt":
			r.UpdatedAt = v.(time.Time)
		case "lastEditAt":
			t := v.(time.Time)
			r.LastEditAt = &t
		}
	}
	return nil
}

func (m *memRemote) DeleteReport(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return m.networkErr()
	}
	if _, ok := m.reports[id]; !ok {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *memRemote) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing || m.failHistory {
		return m.networkErr()
	}
	m.history = append(m.history, e)
	return nil
}

func (m *memRemote) HistoryByReport(ctx context.Context, reportID uuid.UUID, newestFirst bool) ([]*HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, m.networkErr()
	}
	var out []*HistoryEntry
	for _, e := range m.history {
		if e.ReportID == reportID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *memRemote) PutNotification(ctx context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing || m.failNotify {
		return m.networkErr()
	}
	m.notifications = append(m.notifications, n)
	return nil
}

// memCache is an in-memory Cache relying on Filter.Matches for listing
type memCache struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Report

	failing bool
}

func newMemCache() *memCache {
	return &memCache{rows: make(map[uuid.UUID]*Report)}
}

func (m *memCache) Upsert(ctx context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return fmt.Errorf("disk full")
	}
	m.rows[r.ID] = r.Clone()
	return nil
}

func (m *memCache) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return fmt.Errorf("disk full")
	}
	delete(m.rows, id)
	return nil
}

func (m *memCache) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (m *memCache) List(ctx context.Context, f Filter) ([]*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Report, 0, len(m.rows))
	for _, r := range m.rows {
		if f.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memCache) Counts(ctx context.Context) (*StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := &StatusCounts{}
	for _, r := range m.rows {
		switch r.Status {
		case StatusPending:
			counts.Pending++
		case StatusApproved:
			counts.Approved++
		case StatusRejected:
			counts.Rejected++
		}
		counts.Total++
	}
	return counts, nil
}

type testEnv struct {
	service *Service
	remote  *memRemote
	cache   *memCache
	sync    *SyncEngine
}

func newTestEnv() *testEnv {
	remote := newMemRemote()
	cache := newMemCache()
	engine := NewSyncEngine(remote, cache, nil)
	service := NewService(remote, cache, engine, nil)
	return &testEnv{service: service, remote: remote, cache: cache, sync: engine}
}

func testModerator() Moderator {
	return Moderator{ID: "mod-1", Name: "Laura Vega"}
}

func pendingReport(title string, t ReportType) *Report {
	now := time.Now()
	return &Report{
		ID:          uuid.New(),
		UserID:      "user-1",
		UserName:    "Carlos Ruiz",
		Title:       title,
		Description: "Something happened near the corner store",
		Type:        t,
		Status:      StatusPending,
		Latitude:    4.6097,
		Longitude:   -74.0817,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func seedReport(env *testEnv, r *Report) {
	env.remote.reports[r.ID] = r.Clone()
	synced := r.Clone()
	synced.IsSynced = true
	env.cache.rows[r.ID] = synced
}
