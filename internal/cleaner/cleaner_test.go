package cleaner

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

type fakeService struct {
	user    string
	apps    []string
	deleted []string
	failOn  string
}

func (f *fakeService) GetUser(context.Context) (*appcenter.User, error) {
	return &appcenter.User{Name: f.user}, nil
}

func (f *fakeService) ListOrganizations(context.Context) ([]appcenter.Organization, error) {
	return nil, nil
}

func (f *fakeService) ListProjects(context.Context) ([]appcenter.App, error) {
	out := make([]appcenter.App, 0, len(f.apps))
	for _, a := range f.apps {
		out = append(out, appcenter.App{Name: a})
	}
	return out, nil
}

func (f *fakeService) DeleteProject(_ context.Context, app string) error {
	if app == f.failOn {
		return errors.RemoteError("delete failed").Build()
	}
	f.deleted = append(f.deleted, app)
	return nil
}

func newService() *fakeService {
	return &fakeService{user: "jane", apps: []string{"demo-ios", "demo-android", "prod-ios", "scratch"}}
}

func quiet() Option { return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))) }

func TestFilterSelect(t *testing.T) {
	names := []string{"demo-ios", "demo-android", "prod-ios", "scratch"}
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"include glob", Filter{Include: []string{"demo-*"}}, []string{"demo-ios", "demo-android"}},
		{"exclude only", Filter{Exclude: []string{"prod-*"}}, []string{"demo-ios", "demo-android", "scratch"}},
		{"exclude wins", Filter{Include: []string{"*-ios"}, Exclude: []string{"prod-*"}}, []string{"demo-ios"}},
		{"no match", Filter{Include: []string{"nothing"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.Select(names))
		})
	}
}

func TestCleanDeletesAfterConfirmation(t *testing.T) {
	svc := newService()
	var out bytes.Buffer
	c := New(svc, config.Individual{Name: "jane"}, Filter{Include: []string{"demo-*"}},
		WithIO(strings.NewReader("Y\n"), &out), quiet())

	res, err := c.Clean(context.Background())
	require.NoError(t, err)
	require.True(t, res.Confirmed)
	require.Equal(t, []string{"demo-ios", "demo-android"}, svc.deleted)
	require.Contains(t, out.String(), "[DELETE] demo-ios")
	require.Contains(t, out.String(), "[keep  ] prod-ios")
}

func TestCleanDeclined(t *testing.T) {
	svc := newService()
	c := New(svc, config.Individual{Name: "jane"}, Filter{Include: []string{"demo-*"}},
		WithIO(strings.NewReader("no\n"), io.Discard), quiet())

	res, err := c.Clean(context.Background())
	require.NoError(t, err)
	require.False(t, res.Confirmed)
	require.Empty(t, svc.deleted)
}

func TestCleanDryRunNeverDeletes(t *testing.T) {
	svc := newService()
	c := New(svc, config.Individual{Name: "jane"}, Filter{Exclude: []string{"prod-*"}},
		WithDryRun(true), WithAssumeYes(true), quiet())

	res, err := c.Clean(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Selected, 3)
	require.Empty(t, svc.deleted)
}

func TestCleanRequiresFilter(t *testing.T) {
	_, err := New(newService(), config.Individual{Name: "jane"}, Filter{}, quiet()).Clean(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestCleanVerifiesOwner(t *testing.T) {
	svc := newService()
	_, err := New(svc, config.Individual{Name: "john"}, Filter{Include: []string{"*"}}, WithAssumeYes(true), quiet()).
		Clean(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryIdentity))
	require.Empty(t, svc.deleted)
}

func TestCleanStopsAtFirstDeleteFailure(t *testing.T) {
	svc := newService()
	svc.failOn = "demo-android"
	res, err := New(svc, config.Individual{Name: "jane"}, Filter{Include: []string{"demo-*", "scratch"}}, WithAssumeYes(true), quiet()).
		Clean(context.Background())
	require.Error(t, err)
	require.Equal(t, []string{"demo-ios"}, res.Deleted)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"yes\n", true, false},
		{"y", true, false},
		{"NO\n", false, false},
		{"n\n", false, false},
		{"maybe\n", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		got, err := Confirm(strings.NewReader(tt.input), io.Discard, "? ")
		if tt.wantErr {
			require.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		require.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
