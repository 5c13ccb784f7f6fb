package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/application/finance"
	"github.com/GwydionBr/life-manager-sub000/internal/application/timer"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/handlers"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/middleware"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/queue"
)

const testAPIKey = "lm_test_key"

type fakeAccountRepo struct {
	byHash map[string]*domain.Account
}

func (r *fakeAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.byHash[a.APIKeyHash] = a
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	for _, a := range r.byHash {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Account, error) {
	return r.byHash[hash], nil
}

type fakeProjectRepo struct {
	projects map[domain.ProjectID]*domain.Project
}

func (r *fakeProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	r.projects[p.ID] = p
	return nil
}

func (r *fakeProjectRepo) GetByID(ctx context.Context, accountID domain.AccountID, id domain.ProjectID) (*domain.Project, error) {
	p := r.projects[id]
	if p == nil || p.AccountID != accountID {
		return nil, nil
	}
	return p, nil
}

func (r *fakeProjectRepo) List(ctx context.Context, accountID domain.AccountID) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.projects {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeEntryRepo struct {
	entries []*domain.WorkTimeEntry
}

func (r *fakeEntryRepo) Create(ctx context.Context, e *domain.WorkTimeEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeEntryRepo) ListByProject(ctx context.Context, accountID domain.AccountID, projectID domain.ProjectID) ([]*domain.WorkTimeEntry, error) {
	var out []*domain.WorkTimeEntry
	for _, e := range r.entries {
		if e.AccountID == accountID && e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSnapshotRepo struct {
	snaps map[domain.TimerID]*domain.TimerSnapshot
}

func (r *fakeSnapshotRepo) Save(ctx context.Context, s *domain.TimerSnapshot) error {
	cp := *s
	r.snaps[s.ID] = &cp
	return nil
}

func (r *fakeSnapshotRepo) Delete(ctx context.Context, id domain.TimerID) error {
	delete(r.snaps, id)
	return nil
}

func (r *fakeSnapshotRepo) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*domain.TimerSnapshot, error) {
	var out []*domain.TimerSnapshot
	for _, s := range r.snaps {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSnapshotRepo) ListAll(ctx context.Context) ([]*domain.TimerSnapshot, error) {
	var out []*domain.TimerSnapshot
	for _, s := range r.snaps {
		out = append(out, s)
	}
	return out, nil
}

type fakeRuleRepo struct {
	rules map[uuid.UUID]*domain.RecurringCashFlow
}

func (r *fakeRuleRepo) Create(ctx context.Context, rule *domain.RecurringCashFlow) error {
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.RecurringCashFlow, error) {
	rule := r.rules[id]
	if rule == nil || rule.AccountID != accountID {
		return nil, nil
	}
	return rule, nil
}

func (r *fakeRuleRepo) List(ctx context.Context, accountID domain.AccountID) ([]*domain.RecurringCashFlow, error) {
	var out []*domain.RecurringCashFlow
	for _, rule := range r.rules {
		if rule.AccountID == accountID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) ListActive(ctx context.Context, asOf time.Time) ([]*domain.RecurringCashFlow, error) {
	var out []*domain.RecurringCashFlow
	for _, rule := range r.rules {
		if !rule.StartDate.After(asOf) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Delete(ctx context.Context, accountID domain.AccountID, id uuid.UUID, mode domain.DeleteMode) error {
	delete(r.rules, id)
	return nil
}

type fakeFlowRepo struct {
	flows []*domain.SingleCashFlow
}

func (r *fakeFlowRepo) Create(ctx context.Context, flow *domain.SingleCashFlow) error {
	r.flows = append(r.flows, flow)
	return nil
}

func (r *fakeFlowRepo) CreateBatch(ctx context.Context, flows []*domain.SingleCashFlow) error {
	r.flows = append(r.flows, flows...)
	return nil
}

func (r *fakeFlowRepo) GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.SingleCashFlow, error) {
	for _, f := range r.flows {
		if f.ID == id && f.AccountID == accountID {
			return f, nil
		}
	}
	return nil, nil
}

func (r *fakeFlowRepo) ListByRecurring(ctx context.Context, ruleIDs []uuid.UUID) ([]*domain.SingleCashFlow, error) {
	want := make(map[uuid.UUID]bool, len(ruleIDs))
	for _, id := range ruleIDs {
		want[id] = true
	}
	var out []*domain.SingleCashFlow
	for _, f := range r.flows {
		if f.RecurringCashFlowID != nil && want[*f.RecurringCashFlowID] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFlowRepo) List(ctx context.Context, accountID domain.AccountID) ([]*domain.SingleCashFlow, error) {
	var out []*domain.SingleCashFlow
	for _, f := range r.flows {
		if f.AccountID == accountID {
			out = append(out, f)
		}
	}
	return out, nil
}

type fakeTagRepo struct {
	edges map[domain.TagEntityKind][]domain.TagAssociation
}

func (r *fakeTagRepo) ListAssociations(ctx context.Context, kind domain.TagEntityKind, entityIDs []uuid.UUID) ([]domain.TagAssociation, error) {
	want := make(map[uuid.UUID]bool, len(entityIDs))
	for _, id := range entityIDs {
		want[id] = true
	}
	var out []domain.TagAssociation
	for _, e := range r.edges[kind] {
		if want[e.EntityID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeTagRepo) ApplyDiff(ctx context.Context, kind domain.TagEntityKind, deletes, inserts []domain.TagAssociation) error {
	keep := r.edges[kind][:0]
	for _, e := range r.edges[kind] {
		drop := false
		for _, d := range deletes {
			if d.EntityID == e.EntityID && d.TagID == e.TagID {
				drop = true
				break
			}
		}
		if !drop {
			keep = append(keep, e)
		}
	}
	r.edges[kind] = append(keep, inserts...)
	return nil
}

type testEnv struct {
	server    *httptest.Server
	account   *domain.Account
	project   *domain.Project
	projects  *fakeProjectRepo
	entries   *fakeEntryRepo
	rules     *fakeRuleRepo
	flows     *fakeFlowRepo
	tags      *fakeTagRepo
	snapshots *fakeSnapshotRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	hash := middleware.SHA256HashAPIKey()

	account := &domain.Account{
		ID:         domain.NewAccountID(uuid.New()),
		Name:       "test",
		APIKeyHash: hash(testAPIKey),
	}
	project := &domain.Project{
		ID:         domain.NewProjectID(uuid.New()),
		AccountID:  account.ID,
		Name:       "consulting",
		HourlyRate: decimal.NewFromInt(90),
		Currency:   "EUR",
	}

	accounts := &fakeAccountRepo{byHash: map[string]*domain.Account{account.APIKeyHash: account}}
	projects := &fakeProjectRepo{projects: map[domain.ProjectID]*domain.Project{project.ID: project}}
	entries := &fakeEntryRepo{}
	snapshots := &fakeSnapshotRepo{snaps: make(map[domain.TimerID]*domain.TimerSnapshot)}
	rules := &fakeRuleRepo{rules: make(map[uuid.UUID]*domain.RecurringCashFlow)}
	flows := &fakeFlowRepo{}
	tags := &fakeTagRepo{edges: make(map[domain.TagEntityKind][]domain.TagAssociation)}

	manager := timer.NewManager(timer.ManagerConfig{
		Capacity:        10,
		AutoStopOthers:  true,
		DefaultRounding: domain.RoundingSettings{Interval: 1, Direction: domain.RoundNearest},
	}, entries, snapshots, projects, log)

	syncer := finance.NewTagSyncer(tags)
	enqueuer := queue.NewInlineEnqueuer(rules, flows, syncer, nil, log)

	router := NewRouter(RouterConfig{
		TimersHandler:   handlers.NewTimersHandler(manager, projects, log),
		ProjectsHandler: handlers.NewProjectsHandler(projects, entries, log),
		FinanceHandler:  handlers.NewFinanceHandler(rules, flows, enqueuer, log),
		AdminHandler:    handlers.NewAdminHandler(accounts, hash, log),
		Account:         middleware.NewAccountResolver(accounts, hash),
		AdminSecret:     "sekrit",
		Log:             log,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{
		server:    server,
		account:   account,
		project:   project,
		projects:  projects,
		entries:   entries,
		rules:     rules,
		flows:     flows,
		tags:      tags,
		snapshots: snapshots,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestMissingAPIKeyRejected(t *testing.T) {
	env := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/timers", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestTimerLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/timers", map[string]string{"project_id": env.project.ID.String()}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create timer status = %d", resp.StatusCode)
	}
	timerID, _ := body["id"].(string)
	if timerID == "" {
		t.Fatal("create timer returned no id")
	}
	if body["state"] != string(domain.TimerStopped) {
		t.Fatalf("new timer state = %v", body["state"])
	}

	resp, _ = env.do(t, http.MethodPost, "/timers", map[string]string{"project_id": env.project.ID.String()}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate timer status = %d, want 409", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPost, "/timers/"+timerID+"/start", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if body["state"] != string(domain.TimerRunning) {
		t.Fatalf("state after start = %v", body["state"])
	}

	resp, body = env.do(t, http.MethodPatch, "/timers/"+timerID+"/adjust", map[string]int64{"active_delta": 3600}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("adjust status = %d", resp.StatusCode)
	}
	if got := body["active_seconds"].(float64); got < 3600 {
		t.Fatalf("active_seconds after adjust = %v", got)
	}

	resp, body = env.do(t, http.MethodPost, "/timers/"+timerID+"/submit", map[string]string{"memo": "weekly sync"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	if body["memo"] != "weekly sync" {
		t.Fatalf("entry memo = %v", body["memo"])
	}
	if len(env.entries.entries) != 1 {
		t.Fatalf("stored entries = %d, want 1", len(env.entries.entries))
	}
	if len(env.snapshots.snaps) != 0 {
		t.Fatalf("snapshots after submit = %d, want 0", len(env.snapshots.snaps))
	}

	resp, _ = env.do(t, http.MethodGet, "/timers/"+timerID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after submit status = %d, want 404", resp.StatusCode)
	}
}

func TestTimerCapacityOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 10; i++ {
		p := &domain.Project{
			ID:         domain.NewProjectID(uuid.New()),
			AccountID:  env.account.ID,
			Name:       "p",
			HourlyRate: decimal.NewFromInt(50),
			Currency:   "EUR",
		}
		env.projects.projects[p.ID] = p
		resp, _ := env.do(t, http.MethodPost, "/timers", map[string]string{"project_id": p.ID.String()}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %d status = %d", i, resp.StatusCode)
		}
	}
	resp, body := env.do(t, http.MethodPost, "/timers", map[string]string{"project_id": env.project.ID.String()}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("over-capacity status = %d, want 409", resp.StatusCode)
	}
	if body["code"] != "timer_limit" {
		t.Fatalf("over-capacity code = %v, want timer_limit", body["code"])
	}
}

func TestRecurringCreateMaterializesInstances(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().AddDate(0, -2, 0).Format("2006-01-02")
	resp, body := env.do(t, http.MethodPost, "/recurring", map[string]interface{}{
		"amount":     "42.50",
		"currency":   "EUR",
		"interval":   "month",
		"start_date": start,
		"title":      "rent",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create recurring status = %d (%v)", resp.StatusCode, body)
	}
	// Two months back plus the current tick.
	if len(env.flows.flows) != 3 {
		t.Fatalf("materialized flows = %d, want 3", len(env.flows.flows))
	}

	resp, body = env.do(t, http.MethodGet, "/cashflows", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list cashflows status = %d", resp.StatusCode)
	}
	if got := len(body["cashflows"].([]interface{})); got != 3 {
		t.Fatalf("listed cashflows = %d, want 3", got)
	}

	// A second manual expansion pass is a fixed point.
	resp, _ = env.do(t, http.MethodPost, "/recurring/expand", nil, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expand status = %d", resp.StatusCode)
	}
	if len(env.flows.flows) != 3 {
		t.Fatalf("flows after re-expand = %d, want 3", len(env.flows.flows))
	}
}

func TestTagSyncOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().Format("2006-01-02")
	tagA, tagB := uuid.New(), uuid.New()
	resp, body := env.do(t, http.MethodPost, "/recurring", map[string]interface{}{
		"amount":     "10",
		"currency":   "EUR",
		"interval":   "month",
		"start_date": start,
		"title":      "gym",
		"tag_ids":    []string{tagA.String()},
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create recurring status = %d", resp.StatusCode)
	}
	ruleID := body["id"].(string)

	resp, _ = env.do(t, http.MethodPut, "/recurring/"+ruleID+"/tags", map[string]interface{}{
		"tag_ids": []string{tagB.String()},
	}, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("tag sync status = %d", resp.StatusCode)
	}
	edges := env.tags.edges[domain.TagEntityRecurringCashFlow]
	if len(edges) != 1 || edges[0].TagID != tagB {
		t.Fatalf("edges after sync = %+v, want single %s", edges, tagB)
	}
}

func TestAdminAccountCreation(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/admin/accounts", map[string]string{"name": "new"}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin without secret status = %d, want 403", resp.StatusCode)
	}
	resp, body := env.do(t, http.MethodPost, "/admin/accounts", map[string]string{"name": "new"},
		map[string]string{"X-Admin-Secret": "sekrit"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create status = %d", resp.StatusCode)
	}
	if body["api_key"] == "" || body["api_key"] == nil {
		t.Fatal("admin create returned no api_key")
	}
}
