package builder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
)

// scripted replays a fixed sequence of fetch results; nil builds mean errors.
type scripted struct {
	builds []*appcenter.Build
	calls  int
}

func (s *scripted) fetch(context.Context) (*appcenter.Build, error) {
	i := s.calls
	s.calls++
	if i >= len(s.builds) {
		i = len(s.builds) - 1
	}
	if s.builds[i] == nil {
		return nil, errTransient
	}
	b := *s.builds[i]
	return &b, nil
}

var (
	inProgress = &appcenter.Build{ID: 7, Status: appcenter.BuildInProgress}
	succeeded  = &appcenter.Build{ID: 7, Status: appcenter.BuildCompleted, Result: appcenter.ResultSucceeded}
	failed     = &appcenter.Build{ID: 7, Status: appcenter.BuildCompleted, Result: appcenter.ResultFailed}
	canceled   = &appcenter.Build{ID: 7, Status: appcenter.BuildCompleted, Result: appcenter.ResultCanceled}
)

func TestPollerSequences(t *testing.T) {
	tests := []struct {
		name        string
		builds      []*appcenter.Build
		maxErrors   int
		outcome     PollOutcome
		fetches     int
		okSleeps    int
		errorSleeps int
	}{
		{"immediate success", []*appcenter.Build{succeeded}, 0, PollSucceeded, 1, 0, 0},
		{"immediate failure", []*appcenter.Build{failed}, 0, PollFailed, 1, 0, 0},
		{"canceled remotely", []*appcenter.Build{inProgress, canceled}, 0, PollFailed, 2, 1, 0},
		{"in progress twice", []*appcenter.Build{inProgress, inProgress, succeeded}, 0, PollSucceeded, 3, 2, 0},
		{"errors then success", []*appcenter.Build{nil, nil, succeeded}, 0, PollSucceeded, 3, 0, 2},
		{"error budget spent", []*appcenter.Build{nil}, 3, PollAborted, 3, 0, 2},
		{"budget not reset by success", []*appcenter.Build{nil, inProgress, nil, inProgress, nil}, 3, PollAborted, 5, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scripted{builds: tt.builds}
			sl := &sleeps{}
			p := NewPoller(src.fetch,
				PollSettings{Interval: 20 * time.Second, ErrorInterval: 10 * time.Second, MaxErrors: tt.maxErrors},
				WithPollSleep(sl.sleep))

			res, err := p.Poll(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.outcome, res.Outcome)
			require.Equal(t, tt.fetches, res.Fetches)
			require.Equal(t, tt.okSleeps, sl.count(20*time.Second))
			require.Equal(t, tt.errorSleeps, sl.count(10*time.Second))
			if tt.outcome == PollAborted {
				require.ErrorIs(t, res.LastErr, errTransient)
			}
		})
	}
}

func TestPollerDefaultsAbortAfterThirtyErrors(t *testing.T) {
	src := &scripted{builds: []*appcenter.Build{nil}}
	sl := &sleeps{}
	res, err := NewPoller(src.fetch, PollSettings{}, WithPollSleep(sl.sleep)).Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, PollAborted, res.Outcome)
	require.Equal(t, 30, res.Errors)
	require.Len(t, sl.calls, 29)
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	src := &scripted{builds: []*appcenter.Build{inProgress}}
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(src.fetch, PollSettings{}, WithPollSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	res, err := p.Poll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, res.Fetches)
	require.Equal(t, inProgress.Status, res.Build.Status)
}

func TestPollerObserverSeesEveryStatus(t *testing.T) {
	src := &scripted{builds: []*appcenter.Build{inProgress, nil, succeeded}}
	var seen []appcenter.BuildStatus
	p := NewPoller(src.fetch, PollSettings{},
		WithPollSleep((&sleeps{}).sleep),
		WithPollObserver(func(b *appcenter.Build) { seen = append(seen, b.Status) }))

	_, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []appcenter.BuildStatus{appcenter.BuildInProgress, appcenter.BuildCompleted}, seen)
}

func TestPollerCountsEmptyResponseAsError(t *testing.T) {
	calls := 0
	fetch := func(context.Context) (*appcenter.Build, error) {
		calls++
		if calls == 1 {
			return nil, nil
		}
		b := *succeeded
		return &b, nil
	}
	sl := &sleeps{}
	res, err := NewPoller(fetch, PollSettings{}, WithPollSleep(sl.sleep)).Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, PollSucceeded, res.Outcome)
	require.Equal(t, 1, res.Errors)
	require.Error(t, res.LastErr)
	require.Equal(t, []time.Duration{10 * time.Second}, sl.calls)
}
