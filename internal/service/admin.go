package service

import (
	"context"
	"fmt"

	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/repository"
)

// AdminService exposes aggregate statistics to administrators.
type AdminService struct {
	repo *repository.Repository
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo *repository.Repository) *AdminService {
	return &AdminService{repo: repo}
}

// Stats is the system-wide snapshot served to administrators.
type Stats struct {
	TotalUsers      int                    `json:"total_users"`
	AdminUsers      int                    `json:"admin_users"`
	TotalPapers     int                    `json:"total_papers"`
	TotalEntries    int                    `json:"total_progress_entries"`
	RecentActivity  []*model.DailyActivity `json:"recent_activity"`
	ActivityWindows int                    `json:"activity_window_days"`
}

// statsActivityDays is the window reported under recent_activity.
const statsActivityDays = 14

// GetStats assembles the admin statistics snapshot.
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	byRole, err := s.repo.CountUsersByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	total := 0
	for _, n := range byRole {
		total += n
	}
	papers, err := s.repo.CountPapers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count papers: %w", err)
	}
	entries, err := s.repo.CountProgressEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("count progress entries: %w", err)
	}
	activity, err := s.repo.RecentActivity(ctx, statsActivityDays)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}

	return &Stats{
		TotalUsers:      total,
		AdminUsers:      byRole[model.RoleAdmin],
		TotalPapers:     papers,
		TotalEntries:    entries,
		RecentActivity:  activity,
		ActivityWindows: statsActivityDays,
	}, nil
}
