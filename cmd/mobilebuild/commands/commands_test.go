package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/history"
)

// remote is a minimal build service: the project exists, the branch has no
// configuration and every build completes with result.
type remote struct {
	mu       sync.Mutex
	result   string
	requests []string
}

func (rm *remote) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rm.mu.Lock()
		rm.requests = append(rm.requests, r.Method+" "+r.URL.Path)
		result := rm.result
		rm.mu.Unlock()

		write := func(v any) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}
		if r.Header.Get("X-API-Token") != "secret-token" {
			w.WriteHeader(http.StatusUnauthorized)
			write(map[string]any{"message": "bad token"})
			return
		}
		switch r.Method + " " + r.URL.Path {
		case "GET /v0.1/user":
			write(map[string]any{"name": "jane"})
		case "GET /v0.1/apps/jane/demo", "PATCH /v0.1/apps/jane/demo":
			write(map[string]any{"name": "demo", "app_secret": "s3"})
		case "POST /v0.1/apps/jane/demo/repo_config":
			write(map[string]any{})
		case "GET /v0.1/apps/jane/demo/branches/master/config":
			w.WriteHeader(http.StatusNotFound)
			write(map[string]any{"message": "not configured"})
		case "POST /v0.1/apps/jane/demo/branches/master/config":
			write(map[string]any{})
		case "POST /v0.1/apps/jane/demo/branches/master/builds":
			write(map[string]any{"id": 42, "status": "notStarted"})
		case "GET /v0.1/apps/jane/demo/builds/42":
			write(map[string]any{"id": 42, "status": "completed", "result": result})
		default:
			w.WriteHeader(http.StatusTeapot)
			write(map[string]any{"message": "unexpected " + r.Method + " " + r.URL.Path})
		}
	})
}

func testConfig(t *testing.T, apiURL string) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	yaml := `
api_token: secret-token
api_url: ` + apiURL + `
owner: {type: individual, name: jane}
project: {name: demo, os: android, platform: react-native, description: Demo}
repo: {url: https://github.com/jane/demo}
build_setting: {trigger: manual}
build_estimate: 1ms
history: {path: ` + filepath.Join(dir, "history.db") + `}
`
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg, dir
}

func testRunner() *runner {
	r := newRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func TestExecuteRecordsHistoryReportAndMetrics(t *testing.T) {
	rm := &remote{result: "succeeded"}
	srv := httptest.NewServer(rm.handler())
	t.Cleanup(srv.Close)
	cfg, dir := testConfig(t, srv.URL)

	reportPath := filepath.Join(dir, "run.md")
	metricsPath := filepath.Join(dir, "mobilebuild.prom")
	err := testRunner().execute(t.Context(), cfg, runOptions{Report: reportPath, MetricsFile: metricsPath})
	require.NoError(t, err)

	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(t.Context(), "demo", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "succeeded", runs[0].Outcome)
	require.Equal(t, 42, runs[0].BuildID)

	evs, err := store.Events(t.Context(), runs[0].RunID)
	require.NoError(t, err)
	require.NotEmpty(t, evs)

	md, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.Contains(t, string(md), "| Build | 42 |")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(prom), `mobilebuild_run_outcomes_total{outcome="succeeded"} 1`)
}

func TestExecuteRecordsFailedBuild(t *testing.T) {
	rm := &remote{result: "failed"}
	srv := httptest.NewServer(rm.handler())
	t.Cleanup(srv.Close)
	cfg, _ := testConfig(t, srv.URL)

	err := testRunner().execute(t.Context(), cfg, runOptions{})
	require.True(t, errors.HasCategory(err, errors.CategoryBuild))

	var out bytes.Buffer
	require.NoError(t, printHistory(t.Context(), &out, cfg.History.Path, "", 10))
	require.Contains(t, out.String(), "failed")
	require.Contains(t, out.String(), "42")
}

func TestExecuteRecordsBranchTheRunUsed(t *testing.T) {
	rm := &remote{result: "succeeded"}
	srv := httptest.NewServer(rm.handler())
	t.Cleanup(srv.Close)
	cfg, _ := testConfig(t, srv.URL)
	cfg.Repo.Branch = ""

	require.NoError(t, testRunner().execute(t.Context(), cfg, runOptions{}))

	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(t.Context(), "demo", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, config.DefaultBranch, runs[0].Branch)
}

func TestPrintHistoryEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printHistory(t.Context(), &out, filepath.Join(t.TempDir(), "h.db"), "", 0))
	require.Equal(t, "No runs recorded\n", out.String())
}

func TestRunInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobilebuild.yaml")
	require.NoError(t, RunInit(path, false))
	require.Error(t, RunInit(path, false), "existing file needs --force")
	require.NoError(t, RunInit(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "APPCENTER_API_TOKEN"))
}

func TestCLIParsesCommands(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"-c", "ci.yaml", "build", "--timeout", "30m", "--download", "out/app.apk", "--report", "run.html"})
	require.NoError(t, err)
	require.Equal(t, "build", ctx.Command())
	require.Equal(t, "ci.yaml", cli.Config)
	require.Equal(t, 30*time.Minute, cli.Build.Timeout)
	require.Equal(t, "build", cli.Build.DownloadKind)

	ctx, err = parser.Parse([]string{"clean", "-i", "demo-*", "-i", "tmp-*", "-e", "demo-prod", "--dry-run"})
	require.NoError(t, err)
	require.Equal(t, "clean", ctx.Command())
	require.Equal(t, []string{"demo-*", "tmp-*"}, cli.Clean.Include)
	require.True(t, cli.Clean.DryRun)

	_, err = parser.Parse([]string{"download"})
	require.Error(t, err, "--build-id is required")
}

func TestBuildRejectsUnknownDownloadKind(t *testing.T) {
	cmd := &BuildCmd{DownloadKind: "apk"}
	err := cmd.Run(&Global{Logger: slog.Default()}, &CLI{Config: "unused.yaml"})
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}
