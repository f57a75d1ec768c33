package builder

import (
	"context"
	"slices"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// IdentityService resolves who the API token belongs to.
type IdentityService interface {
	GetUser(ctx context.Context) (*appcenter.User, error)
	ListOrganizations(ctx context.Context) ([]appcenter.Organization, error)
}

// Service is the part of the remote facade the orchestrator drives.
// *appcenter.Client implements it.
type Service interface {
	IdentityService

	ProjectExists(ctx context.Context, app string) (bool, error)
	CreateProject(ctx context.Context, req appcenter.CreateAppRequest) (*appcenter.App, error)
	UpdateProject(ctx context.Context, app string, req appcenter.UpdateAppRequest) (*appcenter.App, error)
	GetAppSecret(ctx context.Context, app string) (string, error)

	SetRepositoryURL(ctx context.Context, app, repoURL string) error
	DisconnectRepository(ctx context.Context, app string) error

	GetBuildConfiguration(ctx context.Context, app, branch string) (appcenter.BuildConfiguration, error)
	CreateBuildConfiguration(ctx context.Context, app, branch string, cfg appcenter.BuildConfiguration) error
	UpdateBuildConfiguration(ctx context.Context, app, branch string, cfg appcenter.BuildConfiguration) error

	ListDeployments(ctx context.Context, app string) ([]appcenter.Deployment, error)
	CreateDeployment(ctx context.Context, app, name string) (*appcenter.Deployment, error)

	TriggerBuild(ctx context.Context, app, branch string) (*appcenter.Build, error)
	GetBuild(ctx context.Context, app string, id int) (*appcenter.Build, error)
	GetBuildDownload(ctx context.Context, app string, id int, kind config.DownloadKind) (*appcenter.BuildDownload, error)
}

var _ Service = (*appcenter.Client)(nil)

// VerifyOwner checks that owner matches the authenticated identity: an individual must
// be the current user, an organization must be one the user belongs to.
func VerifyOwner(ctx context.Context, svc IdentityService, owner config.Owner) error {
	switch o := owner.(type) {
	case config.Individual:
		user, err := svc.GetUser(ctx)
		if err != nil {
			return err
		}
		if user.Name != o.Name {
			return errors.IdentityError("configured individual owner does not match the authenticated user").
				WithContext("owner", o.Name).
				WithContext("authenticated", user.Name).
				Build()
		}
		return nil
	case config.Organization:
		orgs, err := svc.ListOrganizations(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(orgs))
		for _, org := range orgs {
			names = append(names, org.Name)
		}
		if !slices.Contains(names, o.Name) {
			return errors.IdentityError("configured organization owner is not one of the authenticated user's organizations").
				WithContext("owner", o.Name).
				WithContext("organizations", names).
				Build()
		}
		return nil
	default:
		return errors.ValidationError("owner is required").Build()
	}
}
