package builder

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/events"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
)

func (b *Builder) resolveIdentity(ctx context.Context) error {
	if err := VerifyOwner(ctx, b.svc, b.cfg.Owner); err != nil {
		return err
	}
	b.info("Owner identity verified", logfields.OwnerType(string(b.cfg.Owner.OwnerType())))
	return nil
}

// upsertProject creates the project or, when it exists, updates its description.
// The name is the lookup key and is never changed.
func (b *Builder) upsertProject(ctx context.Context) error {
	p := b.cfg.Project
	exists, err := b.svc.ProjectExists(ctx, p.Name)
	if err != nil {
		return err
	}
	if exists {
		if _, err := b.svc.UpdateProject(ctx, p.Name, appcenter.UpdateAppRequest{Description: p.Description}); err != nil {
			return err
		}
		b.info("Project updated")
		return nil
	}

	req := appcenter.CreateAppRequest{
		Name:        p.Name,
		DisplayName: p.Name,
		Description: p.Description,
		OS:          p.OS,
		Platform:    p.Platform,
	}
	if _, err := b.svc.CreateProject(ctx, req); err != nil {
		return err
	}
	b.info("Project created", slog.String("os", string(p.OS)), slog.String("platform", string(p.Platform)))
	return nil
}

func (b *Builder) connectRepo(ctx context.Context) error {
	if b.cfg.Repo.URL == "" {
		return errors.ValidationError("repository URL is not set").Build()
	}
	if err := b.svc.SetRepositoryURL(ctx, b.cfg.Project.Name, b.cfg.Repo.URL); err != nil {
		return err
	}
	b.info("Repository connected", logfields.URL(b.cfg.Repo.URL))
	return nil
}

// configureBuild submits the caller's build settings, with derived secrets appended,
// merged over any existing branch configuration.
func (b *Builder) configureBuild(ctx context.Context) error {
	app, branch := b.cfg.Project.Name, b.Branch()

	existing, err := b.svc.GetBuildConfiguration(ctx, app, branch)
	if err != nil {
		return err
	}

	setting, err := b.prepareBuildSetting(ctx)
	if err != nil {
		return err
	}
	desired, err := toWire(setting)
	if err != nil {
		return err
	}

	if existing == nil {
		if err := b.svc.CreateBuildConfiguration(ctx, app, branch, desired); err != nil {
			return err
		}
		b.info("Build configuration created", logfields.Branch(branch))
		return nil
	}

	merged := MergeBuildConfiguration(existing, desired)
	if err := b.svc.UpdateBuildConfiguration(ctx, app, branch, merged); err != nil {
		return err
	}
	b.info("Build configuration updated", logfields.Branch(branch))
	return nil
}

func (b *Builder) triggerBuild(ctx context.Context) (int, error) {
	build, err := b.svc.TriggerBuild(ctx, b.cfg.Project.Name, b.Branch())
	if err != nil {
		return 0, err
	}
	return build.ID, nil
}

// awaitCompletion polls the build and turns any non-success into BuildNotSucceeded.
func (b *Builder) awaitCompletion(ctx context.Context, bc *BuildContext) error {
	app := b.cfg.Project.Name
	poller := NewPoller(
		func(ctx context.Context) (*appcenter.Build, error) {
			return b.svc.GetBuild(ctx, app, bc.BuildID())
		},
		PollSettings{
			Interval:      b.cfg.Poll.Interval,
			ErrorInterval: b.cfg.Poll.ErrorInterval,
			MaxErrors:     b.cfg.Poll.MaxErrors,
		},
		WithPollSleep(b.sleep),
		WithPollLogger(b.logger.With(logfields.BuildID(bc.BuildID()))),
		WithPollRecorder(b.recorder),
		WithPollObserver(func(build *appcenter.Build) {
			b.info("Build status checked", logfields.Status(string(build.Status)), logfields.Result(resultOrNA(build.Result)))
			b.emit(ctx, events.Event{
				Type:    events.BuildPolled,
				BuildID: build.ID,
				Status:  string(build.Status),
				Result:  string(build.Result),
			})
		}),
	)

	res, err := poller.Poll(ctx)
	bc.setFinal(res.Build)
	if err != nil {
		return err
	}
	if res.Outcome == PollSucceeded {
		return nil
	}

	eb := errors.BuildError("build did not succeed, please visit the build portal for details").
		WithBuild(bc.BuildID(), bc.StatusURL()).
		WithContext("outcome", string(res.Outcome)).
		WithContext(errors.KeyAborted, res.Outcome == PollAborted)
	if res.Build != nil && res.Build.Result != "" {
		eb = eb.WithContext(errors.KeyResult, string(res.Build.Result))
	}
	if res.Outcome == PollAborted {
		eb = eb.WithContext("poll_errors", res.Errors).WithCause(res.LastErr)
	}
	return eb.Build()
}

func resultOrNA(r appcenter.BuildResult) string {
	if r == "" {
		return "<N/A>"
	}
	return string(r)
}
