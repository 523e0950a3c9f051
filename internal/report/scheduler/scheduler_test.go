package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	projectdomain "statuspulse-backend/internal/project/domain"
	"statuspulse-backend/internal/report/domain"
	"statuspulse-backend/internal/report/usecase"
)

// fakeProjectSource only serves FindReportable; the scheduler touches nothing
// else on the repository.
type fakeProjectSource struct {
	reportable []*projectdomain.Project
	err        error
}

func (f *fakeProjectSource) FindByID(id string) (*projectdomain.Project, error) { return nil, nil }
func (f *fakeProjectSource) FindReportable() ([]*projectdomain.Project, error) {
	return f.reportable, f.err
}
func (f *fakeProjectSource) FindOpenTasks(projectID string) ([]*projectdomain.Task, error) {
	return nil, nil
}
func (f *fakeProjectSource) FindDoneTransitions(projectID string, since, until time.Time) ([]*projectdomain.TaskActivity, error) {
	return nil, nil
}
func (f *fakeProjectSource) FindRecentActivities(taskIDs []string, since time.Time) ([]*projectdomain.TaskActivity, error) {
	return nil, nil
}
func (f *fakeProjectSource) FindTasksByIDs(ids []string) (map[string]*projectdomain.Task, error) {
	return nil, nil
}
func (f *fakeProjectSource) FindUsersByIDs(ids []string) (map[string]*projectdomain.User, error) {
	return nil, nil
}
func (f *fakeProjectSource) FindComponentOwners(projectID string) ([]*projectdomain.ComponentOwner, error) {
	return nil, nil
}

// fakeReports records Generate calls and scripts per-project outcomes.
type fakeReports struct {
	mu      sync.Mutex
	calls   []string
	opts    []usecase.GenerateOptions
	failFor map[string]error
	busyFor map[string]bool
}

func (f *fakeReports) Generate(ctx context.Context, projectID string, opts usecase.GenerateOptions) (*usecase.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, projectID)
	f.opts = append(f.opts, opts)
	if err := f.failFor[projectID]; err != nil {
		return nil, err
	}
	if f.busyFor[projectID] {
		return &usecase.GenerateResult{Outcome: domain.OutcomeLockBusy}, nil
	}
	return &usecase.GenerateResult{Outcome: domain.OutcomeDelivered, DeliveryID: "d-" + projectID}, nil
}

func (f *fakeReports) Preview(ctx context.Context, projectID string, windowHours int) (*usecase.PreviewResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeReports) LastDelivery(projectID string) (*domain.DeliveryRecord, error) {
	return nil, errors.New("not used")
}

func (f *fakeReports) calledProjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string{}, f.calls...)
	sort.Strings(out)
	return out
}

func reportableProjects(ids ...string) []*projectdomain.Project {
	out := make([]*projectdomain.Project, 0, len(ids))
	for _, id := range ids {
		out = append(out, &projectdomain.Project{ID: id, ReportingEnabled: true})
	}
	return out
}

func TestRunTickGeneratesForAllReportableProjects(t *testing.T) {
	source := &fakeProjectSource{reportable: reportableProjects("p1", "p2", "p3")}
	reports := &fakeReports{}
	s := NewReportScheduler(source, reports, time.Hour, 5*time.Second)

	s.runTick()

	got := reports.calledProjects()
	want := []string{"p1", "p2", "p3"}
	if len(got) != len(want) {
		t.Fatalf("generated for %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("generated for %v, want %v", got, want)
		}
	}

	for _, opts := range reports.opts {
		if opts.WindowHours != 24 {
			t.Errorf("window = %d, want 24", opts.WindowHours)
		}
		if opts.Force {
			t.Error("scheduled runs must not force past the dedupe guard")
		}
		if opts.LockTimeout != 5*time.Second {
			t.Errorf("lock timeout = %s, want 5s", opts.LockTimeout)
		}
	}
}

func TestRunTickOneFailureDoesNotAbortOthers(t *testing.T) {
	source := &fakeProjectSource{reportable: reportableProjects("p1", "p2", "p3")}
	reports := &fakeReports{failFor: map[string]error{"p2": errors.New("database unavailable")}}
	s := NewReportScheduler(source, reports, time.Hour, 5*time.Second)

	s.runTick()

	if got := reports.calledProjects(); len(got) != 3 {
		t.Fatalf("generated for %v, want all 3 projects", got)
	}
}

func TestRunTickBusyProjectsAreTolerated(t *testing.T) {
	source := &fakeProjectSource{reportable: reportableProjects("p1", "p2")}
	reports := &fakeReports{busyFor: map[string]bool{"p1": true}}
	s := NewReportScheduler(source, reports, time.Hour, 5*time.Second)

	s.runTick()

	if got := reports.calledProjects(); len(got) != 2 {
		t.Fatalf("generated for %v, want both projects", got)
	}
}

func TestRunTickListError(t *testing.T) {
	source := &fakeProjectSource{err: errors.New("database unavailable")}
	reports := &fakeReports{}
	s := NewReportScheduler(source, reports, time.Hour, 5*time.Second)

	s.runTick()

	if len(reports.calledProjects()) != 0 {
		t.Fatal("no generation should run when listing fails")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	source := &fakeProjectSource{reportable: reportableProjects("p1")}
	reports := &fakeReports{}
	s := NewReportScheduler(source, reports, 20*time.Millisecond, 0)

	s.Start()
	time.Sleep(70 * time.Millisecond)
	s.Stop()

	calls := len(reports.calledProjects())
	if calls == 0 {
		t.Fatal("expected at least one tick")
	}

	time.Sleep(50 * time.Millisecond)
	if after := len(reports.calledProjects()); after != calls {
		t.Errorf("ticks continued after Stop: %d -> %d", calls, after)
	}
}

func TestNewReportSchedulerDefaultInterval(t *testing.T) {
	s := NewReportScheduler(&fakeProjectSource{}, &fakeReports{}, 0, 0)
	if s.interval != time.Hour {
		t.Errorf("interval = %s, want 1h", s.interval)
	}
}
