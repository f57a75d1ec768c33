package builder

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
)

// fakeService is an in-memory Service. Each method pops an error from failures[name]
// before doing its work, so tests can script transient failures per call.
type fakeService struct {
	mu sync.Mutex

	user     string
	orgs     []string
	projects map[string]*appcenter.App

	deployments []appcenter.Deployment
	configs     map[string]appcenter.BuildConfiguration
	submitted   []appcenter.BuildConfiguration

	statuses   []appcenter.Build // popped by GetBuild; the last one repeats
	buildError error             // returned by every GetBuild when set

	failures map[string][]error
	calls    []string
}

func newFakeService() *fakeService {
	return &fakeService{
		user:     "jane",
		projects: map[string]*appcenter.App{},
		configs:  map[string]appcenter.BuildConfiguration{},
		failures: map[string][]error{},
		statuses: []appcenter.Build{{ID: 42, Status: appcenter.BuildCompleted, Result: appcenter.ResultSucceeded}},
	}
}

var errTransient = stderrors.New("transient remote failure")

func (f *fakeService) failN(method string, n int) {
	for i := 0; i < n; i++ {
		f.failures[method] = append(f.failures[method], errTransient)
	}
}

func (f *fakeService) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	if q := f.failures[method]; len(q) > 0 {
		f.failures[method] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeService) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeService) GetUser(context.Context) (*appcenter.User, error) {
	if err := f.enter("GetUser"); err != nil {
		return nil, err
	}
	return &appcenter.User{Name: f.user}, nil
}

func (f *fakeService) ListOrganizations(context.Context) ([]appcenter.Organization, error) {
	if err := f.enter("ListOrganizations"); err != nil {
		return nil, err
	}
	out := make([]appcenter.Organization, 0, len(f.orgs))
	for _, o := range f.orgs {
		out = append(out, appcenter.Organization{Name: o})
	}
	return out, nil
}

func (f *fakeService) ProjectExists(_ context.Context, app string) (bool, error) {
	if err := f.enter("ProjectExists"); err != nil {
		return false, err
	}
	_, ok := f.projects[app]
	return ok, nil
}

func (f *fakeService) CreateProject(_ context.Context, req appcenter.CreateAppRequest) (*appcenter.App, error) {
	if err := f.enter("CreateProject"); err != nil {
		return nil, err
	}
	a := &appcenter.App{Name: req.Name, DisplayName: req.DisplayName, Description: req.Description, OS: req.OS, Platform: req.Platform, AppSecret: "app-secret-value"}
	f.projects[req.Name] = a
	return a, nil
}

func (f *fakeService) UpdateProject(_ context.Context, app string, req appcenter.UpdateAppRequest) (*appcenter.App, error) {
	if err := f.enter("UpdateProject"); err != nil {
		return nil, err
	}
	a := f.projects[app]
	a.Description = req.Description
	return a, nil
}

func (f *fakeService) GetAppSecret(_ context.Context, app string) (string, error) {
	if err := f.enter("GetAppSecret"); err != nil {
		return "", err
	}
	return f.projects[app].AppSecret, nil
}

func (f *fakeService) SetRepositoryURL(context.Context, string, string) error {
	return f.enter("SetRepositoryURL")
}

func (f *fakeService) DisconnectRepository(context.Context, string) error {
	return f.enter("DisconnectRepository")
}

func (f *fakeService) GetBuildConfiguration(_ context.Context, app, branch string) (appcenter.BuildConfiguration, error) {
	if err := f.enter("GetBuildConfiguration"); err != nil {
		return nil, err
	}
	return f.configs[app+"/"+branch], nil
}

func (f *fakeService) CreateBuildConfiguration(_ context.Context, app, branch string, cfg appcenter.BuildConfiguration) error {
	f.submitted = append(f.submitted, cfg)
	if err := f.enter("CreateBuildConfiguration"); err != nil {
		return err
	}
	f.configs[app+"/"+branch] = cfg
	return nil
}

func (f *fakeService) UpdateBuildConfiguration(_ context.Context, app, branch string, cfg appcenter.BuildConfiguration) error {
	f.submitted = append(f.submitted, cfg)
	if err := f.enter("UpdateBuildConfiguration"); err != nil {
		return err
	}
	f.configs[app+"/"+branch] = cfg
	return nil
}

func (f *fakeService) ListDeployments(context.Context, string) ([]appcenter.Deployment, error) {
	if err := f.enter("ListDeployments"); err != nil {
		return nil, err
	}
	return append([]appcenter.Deployment(nil), f.deployments...), nil
}

func (f *fakeService) CreateDeployment(_ context.Context, _ string, name string) (*appcenter.Deployment, error) {
	if err := f.enter("CreateDeployment"); err != nil {
		return nil, err
	}
	d := appcenter.Deployment{Name: name, Key: "key-" + name}
	f.deployments = append(f.deployments, d)
	return &d, nil
}

func (f *fakeService) TriggerBuild(context.Context, string, string) (*appcenter.Build, error) {
	if err := f.enter("TriggerBuild"); err != nil {
		return nil, err
	}
	return &appcenter.Build{ID: 42, Status: appcenter.BuildNotStarted}, nil
}

func (f *fakeService) GetBuild(context.Context, string, int) (*appcenter.Build, error) {
	if err := f.enter("GetBuild"); err != nil {
		return nil, err
	}
	if f.buildError != nil {
		return nil, f.buildError
	}
	b := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return &b, nil
}

func (f *fakeService) GetBuildDownload(_ context.Context, _ string, id int, kind config.DownloadKind) (*appcenter.BuildDownload, error) {
	if err := f.enter("GetBuildDownload"); err != nil {
		return nil, err
	}
	return &appcenter.BuildDownload{URI: "https://blob/" + string(kind) + ".zip"}, nil
}

// mutatingCalls are the methods that change remote state.
var mutatingCalls = []string{
	"CreateProject", "UpdateProject", "SetRepositoryURL", "DisconnectRepository",
	"CreateBuildConfiguration", "UpdateBuildConfiguration", "CreateDeployment", "TriggerBuild",
}

// sleeps records requested waits without waiting.
type sleeps struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeps) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == d {
			n++
		}
	}
	return n
}
