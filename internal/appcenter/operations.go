package appcenter

import (
	"context"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
)

const (
	pathUser          = "/v0.1/user"
	pathOrgs          = "/v0.1/orgs"
	pathUserApps      = "/v0.1/apps"
	pathOrgApps       = "/v0.1/orgs/:owner/apps"
	pathApp           = "/v0.1/apps/:owner/:app"
	pathRepoConfig    = "/v0.1/apps/:owner/:app/repo_config"
	pathBranchConfig  = "/v0.1/apps/:owner/:app/branches/:branch/config"
	pathBranchBuilds  = "/v0.1/apps/:owner/:app/branches/:branch/builds"
	pathDeployments   = "/v0.1/apps/:owner/:app/deployments"
	pathBuild         = "/v0.1/apps/:owner/:app/builds/:id"
	pathBuildDownload = "/v0.1/apps/:owner/:app/builds/:id/downloads/:kind"
)

func (c *Client) appParams(app string) map[string]string {
	return map[string]string{"owner": c.owner.OwnerName(), "app": app}
}

func (c *Client) branchParams(app, branch string) map[string]string {
	p := c.appParams(app)
	p["branch"] = branch
	return p
}

func (c *Client) buildParams(app string, id int) map[string]string {
	p := c.appParams(app)
	p["id"] = strconv.Itoa(id)
	return p
}

// GetUser returns the account the token authenticates as.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodGet, pathUser, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListOrganizations returns the organizations the account belongs to.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.call(ctx, http.MethodGet, pathOrgs, nil, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// GetProject fetches a project by name.
func (c *Client) GetProject(ctx context.Context, app string) (*App, error) {
	var a App
	if err := c.call(ctx, http.MethodGet, pathApp, c.appParams(app), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ProjectExists reports whether the project exists. Only a 404 counts as absent;
// any other failure is returned.
func (c *Client) ProjectExists(ctx context.Context, app string) (bool, error) {
	_, err := c.GetProject(ctx, app)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// GetAppSecret returns the project's app secret.
func (c *Client) GetAppSecret(ctx context.Context, app string) (string, error) {
	a, err := c.GetProject(ctx, app)
	if err != nil {
		return "", err
	}
	return a.AppSecret, nil
}

// CreateProject creates a project under the bound owner, using the user or the
// organization endpoint depending on the owner kind.
func (c *Client) CreateProject(ctx context.Context, req CreateAppRequest) (*App, error) {
	template, params := pathUserApps, map[string]string(nil)
	if org, ok := c.owner.(config.Organization); ok {
		template, params = pathOrgApps, map[string]string{"owner": org.Name}
	}
	var a App
	if err := c.call(ctx, http.MethodPost, template, params, req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateProject patches a project.
func (c *Client) UpdateProject(ctx context.Context, app string, req UpdateAppRequest) (*App, error) {
	var a App
	if err := c.call(ctx, http.MethodPatch, pathApp, c.appParams(app), req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListProjects lists the projects that belong to the bound owner.
func (c *Client) ListProjects(ctx context.Context) ([]App, error) {
	var apps []App
	if org, ok := c.owner.(config.Organization); ok {
		if err := c.call(ctx, http.MethodGet, pathOrgApps, map[string]string{"owner": org.Name}, nil, &apps); err != nil {
			return nil, err
		}
		return apps, nil
	}

	// The user endpoint also returns apps shared through organizations.
	if err := c.call(ctx, http.MethodGet, pathUserApps, nil, nil, &apps); err != nil {
		return nil, err
	}
	owned := apps[:0]
	for _, a := range apps {
		if a.Owner.Name == c.owner.OwnerName() {
			owned = append(owned, a)
		}
	}
	return owned, nil
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, app string) error {
	return c.call(ctx, http.MethodDelete, pathApp, c.appParams(app), nil, nil)
}

// GetRepositoryConfiguration returns the repositories attached to the project.
func (c *Client) GetRepositoryConfiguration(ctx context.Context, app string) ([]RepositoryConfiguration, error) {
	var repos []RepositoryConfiguration
	if err := c.call(ctx, http.MethodGet, pathRepoConfig, c.appParams(app), nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// SetRepositoryURL attaches repoURL to the project. Repeating it is harmless.
func (c *Client) SetRepositoryURL(ctx context.Context, app, repoURL string) error {
	body := RepositoryConfiguration{RepoURL: repoURL}
	return c.call(ctx, http.MethodPost, pathRepoConfig, c.appParams(app), body, nil)
}

// DisconnectRepository detaches the project's repository.
func (c *Client) DisconnectRepository(ctx context.Context, app string) error {
	return c.call(ctx, http.MethodDelete, pathRepoConfig, c.appParams(app), nil, nil)
}

// GetBuildConfiguration returns the branch configuration, or nil when the branch
// has none (404).
func (c *Client) GetBuildConfiguration(ctx context.Context, app, branch string) (BuildConfiguration, error) {
	var cfg BuildConfiguration
	err := c.call(ctx, http.MethodGet, pathBranchConfig, c.branchParams(app, branch), nil, &cfg)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateBuildConfiguration creates the branch configuration.
func (c *Client) CreateBuildConfiguration(ctx context.Context, app, branch string, cfg BuildConfiguration) error {
	return c.call(ctx, http.MethodPost, pathBranchConfig, c.branchParams(app, branch), cfg, nil)
}

// UpdateBuildConfiguration replaces the branch configuration.
func (c *Client) UpdateBuildConfiguration(ctx context.Context, app, branch string, cfg BuildConfiguration) error {
	return c.call(ctx, http.MethodPut, pathBranchConfig, c.branchParams(app, branch), cfg, nil)
}

// ListDeployments lists the project's deployments.
func (c *Client) ListDeployments(ctx context.Context, app string) ([]Deployment, error) {
	var deployments []Deployment
	if err := c.call(ctx, http.MethodGet, pathDeployments, c.appParams(app), nil, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

// CreateDeployment creates a named deployment and returns it with its key.
func (c *Client) CreateDeployment(ctx context.Context, app, name string) (*Deployment, error) {
	var d Deployment
	if err := c.call(ctx, http.MethodPost, pathDeployments, c.appParams(app), Deployment{Name: name}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// TriggerBuild queues a build of branch.
func (c *Client) TriggerBuild(ctx context.Context, app, branch string) (*Build, error) {
	var b Build
	if err := c.call(ctx, http.MethodPost, pathBranchBuilds, c.branchParams(app, branch), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBuild fetches the status of a build.
func (c *Client) GetBuild(ctx context.Context, app string, id int) (*Build, error) {
	var b Build
	if err := c.call(ctx, http.MethodGet, pathBuild, c.buildParams(app, id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBuildDownload returns the download location of a build artifact.
func (c *Client) GetBuildDownload(ctx context.Context, app string, id int, kind config.DownloadKind) (*BuildDownload, error) {
	params := c.buildParams(app, id)
	params["kind"] = string(kind)
	var d BuildDownload
	if err := c.call(ctx, http.MethodGet, pathBuildDownload, params, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
