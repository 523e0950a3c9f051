package repository

import (
	"time"

	"gorm.io/gorm"

	"statuspulse-backend/internal/project/domain"
)

// gormProjectRepository implements ProjectRepository using GORM
type gormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GORM-based ProjectRepository
func NewGormProjectRepository(db *gorm.DB) ProjectRepository {
	return &gormProjectRepository{db: db}
}

func (r *gormProjectRepository) FindByID(id string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.Where("id = ?", id).First(&project).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *gormProjectRepository) FindReportable() ([]*domain.Project, error) {
	var projects []*domain.Project
	err := r.db.Where("reporting_enabled = ?", true).Order("id ASC").Find(&projects).Error
	return projects, err
}

func (r *gormProjectRepository) FindOpenTasks(projectID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("project_id = ? AND status NOT IN ?", projectID,
		[]domain.TaskStatus{domain.TaskStatusDone, domain.TaskStatusArchived}).
		Find(&tasks).Error
	return tasks, err
}

func (r *gormProjectRepository) FindDoneTransitions(projectID string, since, until time.Time) ([]*domain.TaskActivity, error) {
	var activities []*domain.TaskActivity
	err := r.db.Where("project_id = ? AND type = ? AND to_status IN ? AND created_at >= ? AND created_at <= ?",
		projectID, domain.ActivityStatusChange,
		[]domain.TaskStatus{domain.TaskStatusDone, domain.TaskStatusArchived},
		since, until).
		Order("created_at DESC").
		Find(&activities).Error
	return activities, err
}

func (r *gormProjectRepository) FindRecentActivities(taskIDs []string, since time.Time) ([]*domain.TaskActivity, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	var activities []*domain.TaskActivity
	err := r.db.Where("task_id IN ? AND created_at >= ?", taskIDs, since).
		Order("created_at DESC").
		Find(&activities).Error
	return activities, err
}

func (r *gormProjectRepository) FindTasksByIDs(ids []string) (map[string]*domain.Task, error) {
	result := make(map[string]*domain.Task, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var tasks []*domain.Task
	if err := r.db.Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	for _, t := range tasks {
		result[t.ID] = t
	}
	return result, nil
}

func (r *gormProjectRepository) FindUsersByIDs(ids []string) (map[string]*domain.User, error) {
	result := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []*domain.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *gormProjectRepository) FindComponentOwners(projectID string) ([]*domain.ComponentOwner, error) {
	var owners []*domain.ComponentOwner
	err := r.db.Where("project_id = ?", projectID).Find(&owners).Error
	return owners, err
}
