package usecase

import (
	"errors"
	"fmt"
	"sort"
	"time"

	projectdomain "statuspulse-backend/internal/project/domain"
	projectrepo "statuspulse-backend/internal/project/repository"
	"statuspulse-backend/internal/report/domain"
)

// ErrProjectNotFound aborts a generation attempt before the lock is taken.
var ErrProjectNotFound = errors.New("project not found")

// dueSoonHorizon bounds the due-soon bucket regardless of the report window.
const dueSoonHorizon = 48 * time.Hour

// actorLookback bounds the recent-actor owner-suggestion rule.
const actorLookback = 14 * 24 * time.Hour

// suggestionCap is the most suggestions one person may hold in a payload.
const suggestionCap = 2

// SnapshotBuilder produces the deterministic, sanitized StatusPayload for a
// project over a 24h or 48h window.
type SnapshotBuilder struct {
	repo          projectrepo.ProjectRepository
	defaultPolicy projectdomain.MentionPolicy
	Now           func() time.Time
}

// NewSnapshotBuilder creates a new SnapshotBuilder. defaultPolicy applies to
// projects that configure no mention policy of their own.
func NewSnapshotBuilder(repo projectrepo.ProjectRepository, defaultPolicy projectdomain.MentionPolicy) *SnapshotBuilder {
	if defaultPolicy == "" {
		defaultPolicy = projectdomain.MentionPolicyNone
	}
	return &SnapshotBuilder{
		repo:          repo,
		defaultPolicy: defaultPolicy,
		Now:           time.Now,
	}
}

// Build assembles the payload. The hash is computed last; callers must not
// mutate the returned payload.
func (b *SnapshotBuilder) Build(projectID string, windowHours int) (*domain.StatusPayload, error) {
	switch windowHours {
	case 0:
		windowHours = 24
	case 24, 48:
	default:
		return nil, fmt.Errorf("unsupported report window: %dh", windowHours)
	}

	project, err := b.repo.FindByID(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	now := b.Now().UTC()
	windowStart := now.Add(-time.Duration(windowHours) * time.Hour)

	movedDone, err := b.buildMovedDone(projectID, windowStart, now)
	if err != nil {
		return nil, err
	}

	openTasks, err := b.repo.FindOpenTasks(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open tasks: %w", err)
	}
	sortAtRisk(openTasks)

	var overdueCandidates, dueSoonCandidates []*projectdomain.Task
	for _, t := range openTasks {
		if t.DueDate == nil {
			continue
		}
		switch {
		case t.DueDate.Before(now):
			overdueCandidates = append(overdueCandidates, t)
		case !t.DueDate.After(now.Add(dueSoonHorizon)):
			dueSoonCandidates = append(dueSoonCandidates, t)
		}
	}

	// Counts cover the full candidate sets; the rendered lists are capped.
	openCounts := domain.OpenCounts{
		Open:    len(openTasks),
		Overdue: len(overdueCandidates),
	}

	keptOverdue := capTasks(overdueCandidates, domain.MaxItems)
	keptDueSoon := capTasks(dueSoonCandidates, domain.MaxItems)

	// The whitelist holds only the ids that survived truncation; generated
	// text may reference nothing outside it.
	allowedIDs := make([]string, 0, len(keptOverdue)+len(keptDueSoon))
	for _, t := range keptOverdue {
		allowedIDs = append(allowedIDs, t.ID)
	}
	for _, t := range keptDueSoon {
		allowedIDs = append(allowedIDs, t.ID)
	}

	atRiskTasks := append(append([]*projectdomain.Task{}, keptOverdue...), keptDueSoon...)
	users, latestActor, owners, err := b.loadSuggestionInputs(project.ID, atRiskTasks, now)
	if err != nil {
		return nil, err
	}

	atRisk := domain.AtRisk{
		Overdue: buildRiskItems(keptOverdue, users, nil),
		DueSoon: buildRiskItems(keptDueSoon, users, &now),
	}

	suggestions := buildOwnerSuggestions(atRiskTasks, users, latestActor, owners)

	mentionPolicy := project.MentionPolicy
	if mentionPolicy == "" {
		mentionPolicy = b.defaultPolicy
	}

	payload := &domain.StatusPayload{
		Project:          sanitizeText(project.Name),
		ProjectID:        project.ID,
		WindowHours:      windowHours,
		WindowStart:      windowStart,
		WindowEnd:        now,
		StatusModel:      domain.SchemaVersion,
		MovedDone:        movedDone,
		AtRisk:           atRisk,
		OpenCounts:       openCounts,
		SuggestedOwners:  suggestions,
		BusinessCalendar: domain.BusinessCalendar{SkipPostToday: skipToday(project, now)},
		MentionPolicy:    string(mentionPolicy),
		MaxItems:         domain.MaxItems,
		AllowedTaskIDs:   allowedIDs,
		Sanitization: domain.Sanitization{
			StripMentions: true,
			StripURLs:     true,
			StripMarkdown: true,
			RedactTokens:  true,
		},
	}

	hash, err := payload.ComputeHash()
	if err != nil {
		return nil, err
	}
	payload.PayloadHash = hash

	return payload, nil
}

// buildMovedDone counts distinct tasks whose most recent transition into a
// done state falls inside the window, with up to MaxItems title examples.
func (b *SnapshotBuilder) buildMovedDone(projectID string, since, until time.Time) (domain.DoneSummary, error) {
	transitions, err := b.repo.FindDoneTransitions(projectID, since, until)
	if err != nil {
		return domain.DoneSummary{}, fmt.Errorf("failed to load done transitions: %w", err)
	}

	// Transitions arrive newest first, so the first hit per task is that
	// task's latest move into done.
	seen := make(map[string]bool)
	var doneIDs []string
	for _, a := range transitions {
		if seen[a.TaskID] {
			continue
		}
		seen[a.TaskID] = true
		doneIDs = append(doneIDs, a.TaskID)
	}

	summary := domain.DoneSummary{Count: len(doneIDs), Examples: []string{}}
	if len(doneIDs) == 0 {
		return summary, nil
	}

	exampleIDs := doneIDs
	if len(exampleIDs) > domain.MaxItems {
		exampleIDs = exampleIDs[:domain.MaxItems]
	}
	tasks, err := b.repo.FindTasksByIDs(exampleIDs)
	if err != nil {
		return domain.DoneSummary{}, fmt.Errorf("failed to load completed tasks: %w", err)
	}
	for _, id := range exampleIDs {
		if t, ok := tasks[id]; ok {
			summary.Examples = append(summary.Examples, sanitizeText(t.Title))
		}
	}
	return summary, nil
}

// loadSuggestionInputs gathers everything the owner-suggestion rules need in
// three reads: users for assignees/actors/owners, the latest actor per task,
// and the component-owner map.
func (b *SnapshotBuilder) loadSuggestionInputs(projectID string, tasks []*projectdomain.Task, now time.Time) (map[string]*projectdomain.User, map[string]string, map[string]string, error) {
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}

	activities, err := b.repo.FindRecentActivities(taskIDs, now.Add(-actorLookback))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load recent activities: %w", err)
	}
	latestActor := make(map[string]string)
	for _, a := range activities { // newest first
		if a.ActorID == "" {
			continue
		}
		if _, ok := latestActor[a.TaskID]; !ok {
			latestActor[a.TaskID] = a.ActorID
		}
	}

	componentOwners, err := b.repo.FindComponentOwners(projectID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load component owners: %w", err)
	}
	owners := make(map[string]string, len(componentOwners))
	for _, o := range componentOwners {
		owners[o.Component] = o.UserID
	}

	userIDs := make(map[string]bool)
	for _, t := range tasks {
		if t.AssigneeID != nil {
			userIDs[*t.AssigneeID] = true
		}
		if actor, ok := latestActor[t.ID]; ok {
			userIDs[actor] = true
		}
		if owner, ok := owners[t.Component]; ok {
			userIDs[owner] = true
		}
	}
	ids := make([]string, 0, len(userIDs))
	for id := range userIDs {
		ids = append(ids, id)
	}
	users, err := b.repo.FindUsersByIDs(ids)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load users: %w", err)
	}

	return users, latestActor, owners, nil
}

// buildOwnerSuggestions applies the suggestion rules per at-risk task, first
// match wins: active assignee, then most recent actor, then the component's
// default owner. Each person holds at most suggestionCap suggestions.
func buildOwnerSuggestions(tasks []*projectdomain.Task, users map[string]*projectdomain.User, latestActor, owners map[string]string) []domain.OwnerSuggestion {
	suggestions := []domain.OwnerSuggestion{}
	counts := make(map[string]int)

	eligible := func(userID string) *projectdomain.User {
		u, ok := users[userID]
		if !ok || !u.Active || counts[userID] >= suggestionCap {
			return nil
		}
		return u
	}

	for _, t := range tasks {
		var userID, reason string
		if t.AssigneeID != nil && eligible(*t.AssigneeID) != nil {
			userID, reason = *t.AssigneeID, "current assignee"
		} else if actor, ok := latestActor[t.ID]; ok && eligible(actor) != nil {
			userID, reason = actor, "recent activity"
		} else if owner, ok := owners[t.Component]; ok && eligible(owner) != nil {
			userID, reason = owner, "component owner"
		} else {
			continue
		}

		counts[userID]++
		suggestions = append(suggestions, domain.OwnerSuggestion{
			TaskID: t.ID,
			Name:   sanitizeText(users[userID].Name),
			Reason: reason,
		})
	}
	return suggestions
}

func buildRiskItems(tasks []*projectdomain.Task, users map[string]*projectdomain.User, now *time.Time) []domain.RiskItem {
	items := []domain.RiskItem{}
	for _, t := range tasks {
		item := domain.RiskItem{
			ID:       t.ID,
			Title:    sanitizeText(t.Title),
			Priority: string(t.Priority),
		}
		if t.AssigneeID != nil {
			if u, ok := users[*t.AssigneeID]; ok {
				name := sanitizeText(u.Name)
				item.Assignee = &name
			}
		}
		if now != nil && t.DueDate != nil {
			hours := int(t.DueDate.Sub(*now).Hours())
			item.DueInHours = &hours
		}
		items = append(items, item)
	}
	return items
}

// sortAtRisk orders open tasks by priority descending, then due time
// ascending with undated tasks last, then id for stability.
func sortAtRisk(tasks []*projectdomain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		pi, pj := projectdomain.PriorityRank(tasks[i].Priority), projectdomain.PriorityRank(tasks[j].Priority)
		if pi != pj {
			return pi > pj
		}
		di, dj := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case di == nil && dj == nil:
			return tasks[i].ID < tasks[j].ID
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.Before(*dj)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func capTasks(tasks []*projectdomain.Task, max int) []*projectdomain.Task {
	if len(tasks) > max {
		return tasks[:max]
	}
	return tasks
}

// skipToday is the business-day gate: weekend in the project timezone, with
// UTC as the fallback for a missing or invalid timezone identifier.
func skipToday(project *projectdomain.Project, now time.Time) bool {
	if !project.BusinessDaysOnly {
		return false
	}
	loc := time.UTC
	if project.Timezone != "" {
		if parsed, err := time.LoadLocation(project.Timezone); err == nil {
			loc = parsed
		}
	}
	weekday := now.In(loc).Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}
