package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/command"
	"github.com/castrove/castrove/internal/repository"
	"github.com/castrove/castrove/internal/scheduler"
	"github.com/castrove/castrove/internal/store"
)

type recordingRunner struct {
	status castrove.RunStatus
}

func (r *recordingRunner) Execute(ctx context.Context, wf *castrove.Workflow, trigger string) *castrove.RunRecord {
	status := r.status
	if status == "" {
		status = castrove.RunStatusSucceeded
	}
	started := time.Now()
	finished := started.Add(time.Second)
	return &castrove.RunRecord{
		ID:          castrove.GenerateID("run"),
		WorkflowID:  wf.ID,
		TriggerType: trigger,
		Status:      status,
		StartedAt:   started,
		FinishedAt:  &finished,
	}
}

func newTestServer(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()
	st := store.New(
		repository.NewMemoryWorkflowRepository(),
		repository.NewMemoryRunRepository(),
		repository.NewMemoryAuditRepository(),
	)
	srv := NewServer(st, command.New(st))
	srv.SetScheduler(scheduler.New(st, &recordingRunner{}, time.Minute))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return st, ts
}

func postCommand(t *testing.T, ts *httptest.Server, cmd map[string]any) (*http.Response, castrove.CommandResult) {
	t.Helper()
	body, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	resp, err := http.Post(ts.URL+"/api/commands", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/commands failed: %v", err)
	}
	defer resp.Body.Close()

	var res castrove.CommandResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode command result: %v", err)
	}
	return resp, res
}

func createViaAPI(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, res := postCommand(t, ts, map[string]any{
		"kind": "create_workflow",
		"payload": map[string]any{
			"topic":     "cute baby animals",
			"platforms": []string{"tiktok", "youtube"},
			"cadence":   map[string]any{"interval_minutes": 240},
		},
	})
	if resp.StatusCode != http.StatusOK || !res.OK {
		t.Fatalf("create failed: status=%d result=%+v", resp.StatusCode, res)
	}
	return res.WorkflowID
}

func TestCommands_CreateAndQuery(t *testing.T) {
	_, ts := newTestServer(t)
	id := createViaAPI(t, ts)

	resp, res := postCommand(t, ts, map[string]any{"kind": "query", "workflow_id": id})
	if resp.StatusCode != http.StatusOK || !res.OK {
		t.Fatalf("query failed: status=%d result=%+v", resp.StatusCode, res)
	}
	if res.Workflow == nil || res.Workflow.ID != id {
		t.Fatalf("query missing workflow: %+v", res)
	}
}

func TestCommands_ValidationErrorStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp, res := postCommand(t, ts, map[string]any{
		"kind": "create_workflow",
		"payload": map[string]any{
			"topic":   "no platforms",
			"cadence": map[string]any{"interval_minutes": 60},
		},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if res.Error == nil || res.Error.Kind != "validation" {
		t.Fatalf("expected validation error, got %+v", res.Error)
	}
}

func TestCommands_NotFoundStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := postCommand(t, ts, map[string]any{"kind": "pause", "workflow_id": "wf-missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestWorkflows_ListAndGet(t *testing.T) {
	_, ts := newTestServer(t)
	id := createViaAPI(t, ts)

	resp, err := http.Get(ts.URL + "/api/workflows")
	if err != nil {
		t.Fatalf("GET /api/workflows failed: %v", err)
	}
	defer resp.Body.Close()

	var list struct {
		Workflows []*castrove.Workflow `json:"workflows"`
		Total     int                  `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || list.Workflows[0].ID != id {
		t.Fatalf("unexpected list: %+v", list)
	}

	one, err := http.Get(ts.URL + "/api/workflows/" + id)
	if err != nil {
		t.Fatalf("GET workflow failed: %v", err)
	}
	defer one.Body.Close()
	if one.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", one.StatusCode)
	}

	missing, err := http.Get(ts.URL + "/api/workflows/wf-missing")
	if err != nil {
		t.Fatalf("GET missing workflow failed: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing workflow, got %d", missing.StatusCode)
	}
}

func TestWorkflows_ManualRunAndHistory(t *testing.T) {
	st, ts := newTestServer(t)
	id := createViaAPI(t, ts)

	resp, err := http.Post(ts.URL+"/api/workflows/"+id+"/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST run failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var run castrove.RunRecord
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.TriggerType != castrove.TriggerManual {
		t.Fatalf("expected manual trigger, got %s", run.TriggerType)
	}

	wf, err := st.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if wf.RunCount != 1 {
		t.Fatalf("manual run not recorded: %+v", wf)
	}

	hist, err := http.Get(ts.URL + "/api/workflows/" + id + "/runs")
	if err != nil {
		t.Fatalf("GET runs failed: %v", err)
	}
	defer hist.Body.Close()
	var runsResp struct {
		Runs  []*castrove.RunRecord `json:"runs"`
		Total int                   `json:"total"`
	}
	if err := json.NewDecoder(hist.Body).Decode(&runsResp); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if runsResp.Total != 1 {
		t.Fatalf("expected 1 run in history, got %d", runsResp.Total)
	}
}

func TestStatsAndHealth(t *testing.T) {
	_, ts := newTestServer(t)
	createViaAPI(t, ts)

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET stats failed: %v", err)
	}
	defer resp.Body.Close()
	var stats store.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalWorkflows != 1 || stats.RunningCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	health, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET health failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy, got %d", health.StatusCode)
	}
}

func TestWorkflows_AuditTrail(t *testing.T) {
	_, ts := newTestServer(t)
	id := createViaAPI(t, ts)

	if _, res := postCommand(t, ts, map[string]any{"kind": "pause", "workflow_id": id}); !res.OK {
		t.Fatalf("pause failed: %+v", res)
	}

	resp, err := http.Get(ts.URL + "/api/workflows/" + id + "/audit")
	if err != nil {
		t.Fatalf("GET audit failed: %v", err)
	}
	defer resp.Body.Close()
	var auditResp struct {
		Entries []*castrove.AuditEntry `json:"entries"`
		Total   int                    `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auditResp); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if auditResp.Total < 2 {
		t.Fatalf("expected create + pause audit entries, got %d", auditResp.Total)
	}
}
