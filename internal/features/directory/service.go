package directory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// UnknownRank is the seniority sentinel for position codes the directory does
// not know. Lower rank = more senior.
const UnknownRank = 99

type DirectoryService interface {
	// RankOf resolves a position code to its seniority rank (lower = more
	// senior). Unknown codes map to UnknownRank.
	RankOf(positionCode string) int

	// ActiveUsersByRoleAndOrg lists ACTIVE candidates for a role within an
	// org unit. Empty result is not an error.
	ActiveUsersByRoleAndOrg(ctx context.Context, departmentCode, teamCode, positionCode string) ([]UserRef, error)

	// FirstActiveByRole returns the first ACTIVE holder of the role, or nil.
	FirstActiveByRole(ctx context.Context, departmentCode, teamCode, positionCode string) (*UserRef, error)

	// FallbackApprover resolves the role holder, walking up the seniority
	// ranking to the next more senior occupied position when the nominal role
	// is vacant. Returns nil when nothing qualifies.
	FallbackApprover(ctx context.Context, departmentCode, teamCode, positionCode string) (*UserRef, error)

	UserByID(ctx context.Context, id string) (*UserRef, error)
	PositionLabel(ctx context.Context, userID string) (*PositionLabel, error)
}

type DirectoryServiceImpl struct {
	Repo   DirectoryRepository
	Logger *zap.Logger

	rankOnce sync.Once
	ranks    map[string]int
}

func NewDirectoryService(repo DirectoryRepository, logger *zap.Logger) DirectoryService {
	return &DirectoryServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

func (s *DirectoryServiceImpl) loadRanks() {
	s.rankOnce.Do(func() {
		ranks, err := s.Repo.PositionRanks(context.Background())
		if err != nil {
			s.Logger.Warn("failed to load position ranks, all positions rank as unknown", zap.Error(err))
			ranks = map[string]int{}
		}
		s.ranks = ranks
	})
}

func (s *DirectoryServiceImpl) RankOf(positionCode string) int {
	s.loadRanks()
	if rank, ok := s.ranks[positionCode]; ok {
		return rank
	}
	return UnknownRank
}

func (s *DirectoryServiceImpl) ActiveUsersByRoleAndOrg(ctx context.Context, departmentCode, teamCode, positionCode string) ([]UserRef, error) {
	return s.Repo.ActiveUsersByRoleAndOrg(ctx, departmentCode, teamCode, positionCode)
}

func (s *DirectoryServiceImpl) FirstActiveByRole(ctx context.Context, departmentCode, teamCode, positionCode string) (*UserRef, error) {
	users, err := s.Repo.ActiveUsersByRoleAndOrg(ctx, departmentCode, teamCode, positionCode)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (s *DirectoryServiceImpl) FallbackApprover(ctx context.Context, departmentCode, teamCode, positionCode string) (*UserRef, error) {
	if user, err := s.FirstActiveByRole(ctx, departmentCode, teamCode, positionCode); err != nil || user != nil {
		return user, err
	}

	s.loadRanks()

	// Walk the remaining positions from the nominal role's rank upward in
	// seniority, most junior qualifying first.
	own := s.RankOf(positionCode)
	type candidate struct {
		code string
		rank int
	}
	var senior []candidate
	for code, rank := range s.ranks {
		if code != positionCode && rank < own {
			senior = append(senior, candidate{code: code, rank: rank})
		}
	}
	sort.Slice(senior, func(i, j int) bool { return senior[i].rank > senior[j].rank })

	for _, c := range senior {
		user, err := s.FirstActiveByRole(ctx, departmentCode, teamCode, c.code)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	return nil, nil
}

func (s *DirectoryServiceImpl) UserByID(ctx context.Context, id string) (*UserRef, error) {
	return s.Repo.UserByID(ctx, id)
}

func (s *DirectoryServiceImpl) PositionLabel(ctx context.Context, userID string) (*PositionLabel, error) {
	return s.Repo.PositionLabel(ctx, userID)
}
