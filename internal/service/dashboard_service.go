package service

import (
	"context"

	"github.com/unclebandit/aspform-backend/internal/repository"
)

type Counts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

type DashboardStats struct {
	Groups      Counts `json:"groups"`
	Plans       Counts `json:"plans"`
	Submissions int    `json:"submissions"`
}

type DashboardService struct {
	PlanRepo       repository.PlanRepositoryInterface
	GroupRepo      repository.GroupRepositoryInterface
	SubmissionRepo repository.SubmissionRepositoryInterface
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.GroupRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.SubmissionRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{Submissions: n}
	stats.Plans.Total = len(plans)
	for _, p := range plans {
		if p.Status {
			stats.Plans.Active++
		}
	}
	stats.Groups.Total = len(groups)
	for _, g := range groups {
		if g.Status {
			stats.Groups.Active++
		}
	}
	return stats, nil
}
