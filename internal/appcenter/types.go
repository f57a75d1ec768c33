package appcenter

import (
	"time"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
)

// User is the authenticated account.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// Organization is an organization the authenticated account belongs to.
type Organization struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
}

// AppOwner is the owner block embedded in an App.
type AppOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Type        string `json:"type"` // "user" or "org"
}

// App is a project registered on the remote.
type App struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	DisplayName string                 `json:"display_name"`
	Description string                 `json:"description"`
	OS          config.ProjectOS       `json:"os"`
	Platform    config.ProjectPlatform `json:"platform"`
	AppSecret   string                 `json:"app_secret"`
	Owner       AppOwner               `json:"owner"`
	CreatedAt   string                 `json:"created_at,omitempty"`
	UpdatedAt   string                 `json:"updated_at,omitempty"`
}

// CreateAppRequest is the body of a project creation.
type CreateAppRequest struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"display_name"`
	Description string                 `json:"description,omitempty"`
	OS          config.ProjectOS       `json:"os"`
	Platform    config.ProjectPlatform `json:"platform"`
}

// UpdateAppRequest is the body of a project update. Only the description is sent.
type UpdateAppRequest struct {
	Description string `json:"description"`
}

// RepositoryConfiguration describes the repository attached to a project.
type RepositoryConfiguration struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`  // github, bitbucket, ...
	State     string `json:"state,omitempty"` // unauthorized, inactive, active
	RepoURL   string `json:"repo_url"`
	UserEmail string `json:"user_email,omitempty"`
}

// Deployment is a code push deployment and its key.
type Deployment struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// BuildConfiguration is a branch build configuration in wire form. It is kept as a
// generic object so remote fields this client does not model survive a merge.
type BuildConfiguration map[string]any

// BuildStatus is the lifecycle state of a remote build.
type BuildStatus string

const (
	BuildNotStarted BuildStatus = "notStarted"
	BuildInProgress BuildStatus = "inProgress"
	BuildCompleted  BuildStatus = "completed"
)

// BuildResult is only meaningful when the status is completed.
type BuildResult string

const (
	ResultSucceeded BuildResult = "succeeded"
	ResultFailed    BuildResult = "failed"
	ResultCanceled  BuildResult = "canceled"
)

// Build is a triggered build and its status.
type Build struct {
	ID              int         `json:"id"`
	BuildNumber     string      `json:"buildNumber"`
	QueueTime       *time.Time  `json:"queueTime,omitempty"`
	StartTime       *time.Time  `json:"startTime,omitempty"`
	FinishTime      *time.Time  `json:"finishTime,omitempty"`
	LastChangedDate *time.Time  `json:"lastChangedDate,omitempty"`
	Status          BuildStatus `json:"status"`
	Result          BuildResult `json:"result,omitempty"`
	SourceBranch    string      `json:"sourceBranch"`
	SourceVersion   string      `json:"sourceVersion,omitempty"`
}

// Completed reports whether the build reached a terminal status.
func (b Build) Completed() bool { return b.Status == BuildCompleted }

// Succeeded reports whether the build completed with a successful result.
func (b Build) Succeeded() bool { return b.Completed() && b.Result == ResultSucceeded }

// BuildDownload is the location of a build artifact.
type BuildDownload struct {
	URI string `json:"uri"`
}
