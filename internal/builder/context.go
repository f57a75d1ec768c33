package builder

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/events"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
	"git.home.luguber.info/inful/mobilebuild/internal/retry"
)

// BuildContext is the handle returned by a finished run.
type BuildContext struct {
	b        *Builder
	buildID  int
	download *retry.Step

	mu    sync.Mutex
	final *appcenter.Build
}

func newBuildContext(b *Builder, id int) *BuildContext {
	return &BuildContext{b: b, buildID: id, download: b.newStep(StageDownloadPath)}
}

// BuildID is the remote build identifier.
func (c *BuildContext) BuildID() int { return c.buildID }

// Build returns the last fetched status of the build, or nil if none was fetched.
func (c *BuildContext) Build() *appcenter.Build {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.final
}

func (c *BuildContext) setFinal(b *appcenter.Build) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.final = b
}

// StatusURL is the portal page of the build.
func (c *BuildContext) StatusURL() string {
	cfg := c.b.cfg
	scope := "users"
	if _, ok := cfg.Owner.(config.Organization); ok {
		scope = "orgs"
	}
	return fmt.Sprintf("%s/%s/%s/apps/%s/build/branches/%s/builds/%d",
		strings.TrimSuffix(cfg.PortalURL, "/"),
		scope,
		url.PathEscape(ownerName(cfg.Owner)),
		url.PathEscape(cfg.Project.Name),
		url.PathEscape(c.b.Branch()),
		c.buildID)
}

// DownloadPath returns the download URI of an artifact of the build. Failures are
// retried under the context's own budget.
func (c *BuildContext) DownloadPath(ctx context.Context, kind config.DownloadKind) (string, error) {
	return retry.Call(ctx, c.download, func(ctx context.Context) (string, error) {
		d, err := c.b.svc.GetBuildDownload(ctx, c.b.cfg.Project.Name, c.buildID, kind)
		if err != nil {
			return "", err
		}
		return d.URI, nil
	})
}

// Disconnect detaches the repository from the project. Failures are logged with a
// remediation hint and never returned. It reports whether a failure was swallowed.
func (c *BuildContext) Disconnect(ctx context.Context) bool {
	b := c.b
	ignored := retry.Ignore(ctx, b.logger, StageDisconnectRepo, disconnectRemediation, func(ctx context.Context) error {
		if err := b.svc.DisconnectRepository(ctx, b.cfg.Project.Name); err != nil {
			return errors.DisconnectError("failed to disconnect repository").WithCause(err).Build()
		}
		return nil
	})
	if ignored {
		b.recorder.IncStageResult(StageDisconnectRepo, metrics.ResultIgnored)
		b.emit(ctx, events.Event{Type: events.StageIgnored, Stage: StageDisconnectRepo})
		return true
	}
	b.recorder.IncStageResult(StageDisconnectRepo, metrics.ResultSuccess)
	b.info("Repository disconnected")
	return false
}

// Attach returns a context for a build triggered earlier, so its artifacts can be
// fetched or its repository disconnected without running the pipeline again.
func (b *Builder) Attach(buildID int) *BuildContext {
	return newBuildContext(b, buildID)
}
