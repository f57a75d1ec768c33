package appcenter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

type recordedRequest struct {
	Method string
	Path   string
	Token  string
	Body   map[string]any
}

type fakeRemote struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter)
}

func newFakeRemote(t *testing.T) (*fakeRemote, *httptest.Server) {
	t.Helper()
	f := &fakeRemote{routes: map[string]func(http.ResponseWriter){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Token: r.Header.Get("X-API-Token")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		handler, ok := f.routes[r.Method+" "+r.URL.EscapedPath()]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"NotFound","message":"not found"}`))
			return
		}
		handler(w)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRemote) on(method, path string, status int, body string) {
	f.routes[method+" "+path] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakeRemote) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func TestExpandPath(t *testing.T) {
	got, err := expandPath(pathBranchConfig, map[string]string{"owner": "acme inc", "app": "demo", "branch": "feature/x"})
	require.NoError(t, err)
	require.Equal(t, "/v0.1/apps/acme%20inc/demo/branches/feature%2Fx/config", got)

	_, err = expandPath(pathApp, map[string]string{"owner": "acme"})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryInternal))
}

func TestGetUserSendsToken(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("GET", "/v0.1/user", 200, `{"id":"1","name":"jane","display_name":"Jane"}`)

	c := New(srv.URL, "tok", config.Individual{Name: "jane"}, WithHTTPClient(srv.Client()))
	u, err := c.GetUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "jane", u.Name)
	require.Equal(t, "tok", remote.last().Token)
}

func TestRemoteErrorCarriesCallDetails(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("POST", "/v0.1/apps/acme/demo/repo_config", 400, `{"message":"invalid repo url"}`)

	c := New(srv.URL, "tok", config.Organization{Name: "acme"}, WithHTTPClient(srv.Client()))
	err := c.SetRepositoryURL(context.Background(), "demo", "nope")
	require.Error(t, err)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryRemote, ce.Category())
	require.True(t, ce.CanRetry())
	require.Equal(t, 400, StatusCode(err))
	method, _ := ce.Context().GetString("method")
	require.Equal(t, "POST", method)
	msg, _ := ce.Context().GetString("message")
	require.Equal(t, "invalid repo url", msg)
	require.Contains(t, err.Error(), "response code [400], message [invalid repo url]")
}

func TestAuthAndNotFoundCategories(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("GET", "/v0.1/orgs", 401, `{"message":"bad token"}`)
	c := New(srv.URL, "bad", config.Organization{Name: "acme"}, WithHTTPClient(srv.Client()))

	_, err := c.ListOrganizations(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryAuth))

	_, err = c.GetProject(context.Background(), "missing")
	require.True(t, IsNotFound(err))
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestProjectExists(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("GET", "/v0.1/apps/acme/present", 200, `{"name":"present","app_secret":"s3cr3t"}`)
	remote.on("GET", "/v0.1/apps/acme/broken", 500, `oops`)
	c := New(srv.URL, "tok", config.Organization{Name: "acme"}, WithHTTPClient(srv.Client()))
	ctx := context.Background()

	ok, err := c.ProjectExists(ctx, "present")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.ProjectExists(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = c.ProjectExists(ctx, "broken")
	require.Error(t, err, "only 404 means absent")
	require.Equal(t, 500, StatusCode(err))

	secret, err := c.GetAppSecret(ctx, "present")
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", secret)
}

func TestCreateProjectEndpointDependsOnOwner(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("POST", "/v0.1/apps", 201, `{"name":"demo"}`)
	remote.on("POST", "/v0.1/orgs/acme/apps", 201, `{"name":"demo"}`)
	req := CreateAppRequest{Name: "demo", DisplayName: "demo", OS: config.OSiOS, Platform: config.PlatformReactNative}

	user := New(srv.URL, "tok", config.Individual{Name: "jane"}, WithHTTPClient(srv.Client()))
	_, err := user.CreateProject(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "/v0.1/apps", remote.last().Path)
	require.Equal(t, "iOS", remote.last().Body["os"])

	org := New(srv.URL, "tok", config.Organization{Name: "acme"}, WithHTTPClient(srv.Client()))
	_, err = org.CreateProject(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "/v0.1/orgs/acme/apps", remote.last().Path)
	require.Equal(t, "React-Native", remote.last().Body["platform"])
}

func TestListProjectsFiltersByIndividualOwner(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("GET", "/v0.1/apps", 200, `[{"name":"a","owner":{"name":"jane"}},{"name":"b","owner":{"name":"acme"}}]`)

	c := New(srv.URL, "tok", config.Individual{Name: "jane"}, WithHTTPClient(srv.Client()))
	apps, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.Equal(t, "a", apps[0].Name)
}

func TestGetBuildConfigurationNotFoundIsNil(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("GET", "/v0.1/apps/jane/demo/branches/main/config", 200, `{"trigger":"manual","signed":true}`)
	c := New(srv.URL, "tok", config.Individual{Name: "jane"}, WithHTTPClient(srv.Client()))

	cfg, err := c.GetBuildConfiguration(context.Background(), "demo", "main")
	require.NoError(t, err)
	require.Equal(t, BuildConfiguration{"trigger": "manual", "signed": true}, cfg)

	cfg, err = c.GetBuildConfiguration(context.Background(), "demo", "develop")
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestBuildLifecycleCalls(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("POST", "/v0.1/apps/jane/demo/branches/master/builds", 200, `{"id":42,"status":"notStarted"}`)
	remote.on("GET", "/v0.1/apps/jane/demo/builds/42", 200, `{"id":42,"status":"completed","result":"succeeded"}`)
	remote.on("GET", "/v0.1/apps/jane/demo/builds/42/downloads/build", 200, `{"uri":"https://blob/build.zip"}`)
	remote.on("DELETE", "/v0.1/apps/jane/demo/repo_config", 204, ``)
	c := New(srv.URL, "tok", config.Individual{Name: "jane"}, WithHTTPClient(srv.Client()))
	ctx := context.Background()

	b, err := c.TriggerBuild(ctx, "demo", "master")
	require.NoError(t, err)
	require.Equal(t, 42, b.ID)
	require.False(t, b.Completed())

	b, err = c.GetBuild(ctx, "demo", 42)
	require.NoError(t, err)
	require.True(t, b.Succeeded())

	d, err := c.GetBuildDownload(ctx, "demo", 42, config.DownloadBuild)
	require.NoError(t, err)
	require.Equal(t, "https://blob/build.zip", d.URI)

	require.NoError(t, c.DisconnectRepository(ctx, "demo"))
}

func TestDeployments(t *testing.T) {
	remote, srv := newFakeRemote(t)
	remote.on("GET", "/v0.1/apps/jane/demo/deployments", 200, `[{"name":"Production","key":"pk"}]`)
	remote.on("POST", "/v0.1/apps/jane/demo/deployments", 201, `{"name":"Staging","key":"sk"}`)
	c := New(srv.URL, "tok", config.Individual{Name: "jane"}, WithHTTPClient(srv.Client()))

	ds, err := c.ListDeployments(context.Background(), "demo")
	require.NoError(t, err)
	require.Equal(t, []Deployment{{Name: "Production", Key: "pk"}}, ds)

	d, err := c.CreateDeployment(context.Background(), "demo", "Staging")
	require.NoError(t, err)
	require.Equal(t, "sk", d.Key)
	require.Equal(t, "Staging", remote.last().Body["name"])
}

func TestNetworkFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, "tok", config.Individual{Name: "jane"})
	_, err := c.GetUser(context.Background())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryNetwork))
	require.Equal(t, 0, StatusCode(err))
}

func TestCanceledContextReturnsContextError(t *testing.T) {
	_, srv := newFakeRemote(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL, "tok", config.Individual{Name: "jane"}, WithHTTPClient(srv.Client()), WithRateLimit(1, 1))
	_, err := c.GetUser(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
