package repository

import (
	"time"

	"statuspulse-backend/internal/project/domain"
)

// ProjectRepository is the read-only query surface the snapshot builder and
// scheduler depend on. Implementations must never mutate project data.
type ProjectRepository interface {
	// FindByID returns the project or nil when it does not exist.
	FindByID(id string) (*domain.Project, error)
	// FindReportable returns projects with status reporting enabled.
	FindReportable() ([]*domain.Project, error)
	// FindOpenTasks returns tasks of the project not in a done-equivalent state.
	FindOpenTasks(projectID string) ([]*domain.Task, error)
	// FindDoneTransitions returns status-change activities into a done state
	// inside [since, until], newest first.
	FindDoneTransitions(projectID string, since, until time.Time) ([]*domain.TaskActivity, error)
	// FindRecentActivities returns activities on the given tasks since the
	// cutoff, newest first.
	FindRecentActivities(taskIDs []string, since time.Time) ([]*domain.TaskActivity, error)
	// FindTasksByIDs returns the tasks for the given ids, keyed by id.
	FindTasksByIDs(ids []string) (map[string]*domain.Task, error)
	// FindUsersByIDs returns users for the given ids, keyed by id.
	FindUsersByIDs(ids []string) (map[string]*domain.User, error)
	// FindComponentOwners returns the component-owner mapping of the project.
	FindComponentOwners(projectID string) ([]*domain.ComponentOwner, error)
}
