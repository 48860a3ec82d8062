package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/repositories"
)

// LadderService maintains the dense 1..N ranking for a season. Every
// mutation runs inside a single transaction AND behind a per-season lock,
// so concurrent callers cannot interleave multi-row shifts.
type LadderService interface {
	Standings(ctx context.Context, seasonID int) ([]*models.LadderPosition, error)
	GetPosition(ctx context.Context, seasonID, userID int) (*models.LadderPosition, error)

	// InsertPlayer ranks a player at desiredPosition, shifting everyone at
	// or below it down by one. desiredPosition is clamped to [1, N+1].
	InsertPlayer(ctx context.Context, seasonID, userID, desiredPosition int) (*models.LadderPosition, error)

	// RemovePlayer soft-deletes the player's row and closes the gap.
	RemovePlayer(ctx context.Context, seasonID, userID int) error

	// Promote moves the winner into the loser's former slot, pushing the
	// loser and everyone between down by one. No-op when the winner is
	// already ranked at or above the loser.
	Promote(ctx context.Context, seasonID, winnerID, loserID int) error

	// Rollback is the exact inverse of Promote, used on dispute reversal.
	// It restores the pre-promotion arrangement provided no other ladder
	// mutation happened in between; with intervening mutations the result
	// is undefined, matching the restricted guarantee of the original
	// dispute flow.
	Rollback(ctx context.Context, seasonID, promotedID, demotedID int) error

	// RepairPositions reassigns any rows stuck at the sentinel position to
	// the first gap in the sequence, or appends them at the end. Idempotent
	// and safe to invoke at any time.
	RepairPositions(ctx context.Context, seasonID int) (int, error)
}

type ladderService struct {
	txRunner    repositories.TxRunner
	ladderRepo  repositories.LadderRepository
	historyRepo repositories.LadderHistoryRepository
	logger      *slog.Logger

	mu          sync.Mutex
	seasonLocks map[int]*sync.Mutex
}

func NewLadderService(
	txRunner repositories.TxRunner,
	ladderRepo repositories.LadderRepository,
	historyRepo repositories.LadderHistoryRepository,
	logger *slog.Logger,
) LadderService {
	return &ladderService{
		txRunner:    txRunner,
		ladderRepo:  ladderRepo,
		historyRepo: historyRepo,
		logger:      logger,
		seasonLocks: make(map[int]*sync.Mutex),
	}
}

// seasonLock serializes all ladder mutations for one season.
func (s *ladderService) seasonLock(seasonID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.seasonLocks[seasonID]
	if !ok {
		lock = &sync.Mutex{}
		s.seasonLocks[seasonID] = lock
	}
	return lock
}

func (s *ladderService) Standings(ctx context.Context, seasonID int) ([]*models.LadderPosition, error) {
	var positions []*models.LadderPosition
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var listErr error
		positions, listErr = s.ladderRepo.ListActiveBySeason(ctx, exec, seasonID)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load standings for season %d: %w", seasonID, err)
	}
	return positions, nil
}

func (s *ladderService) GetPosition(ctx context.Context, seasonID, userID int) (*models.LadderPosition, error) {
	var pos *models.LadderPosition
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var getErr error
		pos, getErr = s.ladderRepo.GetActiveByUser(ctx, exec, seasonID, userID)
		return getErr
	})
	if err != nil {
		if errors.Is(err, repositories.ErrLadderPositionNotFound) {
			return nil, ErrLadderEntryNotFound
		}
		return nil, err
	}
	return pos, nil
}

func (s *ladderService) InsertPlayer(ctx context.Context, seasonID, userID, desiredPosition int) (*models.LadderPosition, error) {
	lock := s.seasonLock(seasonID)
	lock.Lock()
	defer lock.Unlock()

	var created *models.LadderPosition
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		_, err := s.ladderRepo.GetActiveByUser(ctx, exec, seasonID, userID)
		if err == nil {
			return ErrLadderAlreadyRanked
		}
		if !errors.Is(err, repositories.ErrLadderPositionNotFound) {
			return err
		}

		active, err := s.ladderRepo.ListActiveBySeason(ctx, exec, seasonID)
		if err != nil {
			return err
		}

		position := clampPosition(desiredPosition, len(active)+1)

		// Shift the tail down, highest position first, so the unique index
		// never sees a duplicate.
		for i := len(active) - 1; i >= 0; i-- {
			row := active[i]
			if row.Position < position {
				break
			}
			if err := s.ladderRepo.UpdatePosition(ctx, exec, row.ID, row.Position+1); err != nil {
				return fmt.Errorf("failed to shift position %d down: %w", row.Position, err)
			}
		}

		created = &models.LadderPosition{SeasonID: seasonID, UserID: userID, Position: position}
		return s.ladderRepo.Create(ctx, exec, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ladderService) RemovePlayer(ctx context.Context, seasonID, userID int) error {
	lock := s.seasonLock(seasonID)
	lock.Lock()
	defer lock.Unlock()

	return s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		row, err := s.ladderRepo.GetActiveByUser(ctx, exec, seasonID, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrLadderPositionNotFound) {
				return ErrLadderEntryNotFound
			}
			return err
		}

		if err := s.ladderRepo.SoftDelete(ctx, exec, row.ID); err != nil {
			return err
		}

		active, err := s.ladderRepo.ListActiveBySeason(ctx, exec, seasonID)
		if err != nil {
			return err
		}

		// Close the gap, lowest position first.
		for _, other := range active {
			if other.Position > row.Position {
				if err := s.ladderRepo.UpdatePosition(ctx, exec, other.ID, other.Position-1); err != nil {
					return fmt.Errorf("failed to shift position %d up: %w", other.Position, err)
				}
			}
		}
		return nil
	})
}

func (s *ladderService) Promote(ctx context.Context, seasonID, winnerID, loserID int) error {
	lock := s.seasonLock(seasonID)
	lock.Lock()
	defer lock.Unlock()

	var prevPosition, newPosition int
	promoted := false

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		winner, loser, err := s.loadPair(ctx, exec, seasonID, winnerID, loserID)
		if err != nil {
			return err
		}

		// Winner already at or above the loser: nothing to do.
		if winner.Position <= loser.Position {
			return nil
		}

		prevPosition = winner.Position
		newPosition = loser.Position

		// Classic move-to-gap shift: park the winner at the sentinel, slide
		// the block [loser, winner) down by one from the bottom up, then
		// drop the winner into the loser's former slot.
		if err := s.ladderRepo.UpdatePosition(ctx, exec, winner.ID, models.SentinelPosition); err != nil {
			return fmt.Errorf("failed to park winner at sentinel: %w", err)
		}

		active, err := s.ladderRepo.ListActiveBySeason(ctx, exec, seasonID)
		if err != nil {
			return err
		}
		for i := len(active) - 1; i >= 0; i-- {
			row := active[i]
			if row.Position < loser.Position || row.Position >= prevPosition {
				continue
			}
			if err := s.ladderRepo.UpdatePosition(ctx, exec, row.ID, row.Position+1); err != nil {
				return fmt.Errorf("failed to shift position %d down: %w", row.Position, err)
			}
		}

		if err := s.ladderRepo.UpdatePosition(ctx, exec, winner.ID, newPosition); err != nil {
			return fmt.Errorf("failed to place winner at position %d: %w", newPosition, err)
		}
		promoted = true
		return nil
	})
	if err != nil {
		return err
	}

	if promoted {
		s.appendHistory(ctx, seasonID, winnerID, prevPosition, newPosition, models.HistoryReasonMatchResult)
	}
	return nil
}

func (s *ladderService) Rollback(ctx context.Context, seasonID, promotedID, demotedID int) error {
	lock := s.seasonLock(seasonID)
	lock.Lock()
	defer lock.Unlock()

	var prevPosition, newPosition int
	rolledBack := false

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		promotedRow, demotedRow, err := s.loadPair(ctx, exec, seasonID, promotedID, demotedID)
		if err != nil {
			return err
		}

		// The promotion is only undone when it actually happened.
		if promotedRow.Position >= demotedRow.Position {
			return nil
		}

		// The promotion pulled the winner up from a position that only the
		// history entry still knows; the demoted player sits one slot below
		// the winner now regardless of how far the climb was. Without a
		// usable entry the best available inverse is that adjacent slot.
		target := demotedRow.Position
		entry, histErr := s.historyRepo.LatestByReason(ctx, seasonID, promotedID, models.HistoryReasonMatchResult)
		switch {
		case histErr == nil:
			if entry.NewPosition == promotedRow.Position && entry.PreviousPosition >= demotedRow.Position {
				target = entry.PreviousPosition
			}
		case !errors.Is(histErr, repositories.ErrLadderHistoryNotFound):
			return histErr
		}

		prevPosition = promotedRow.Position
		newPosition = target

		if err := s.ladderRepo.UpdatePosition(ctx, exec, promotedRow.ID, models.SentinelPosition); err != nil {
			return fmt.Errorf("failed to park promoted player at sentinel: %w", err)
		}

		active, err := s.ladderRepo.ListActiveBySeason(ctx, exec, seasonID)
		if err != nil {
			return err
		}
		// Mirror of Promote: slide everyone the promotion pushed down,
		// (promoted, target], back up by one, lowest position first.
		for _, row := range active {
			if row.Position <= prevPosition || row.Position > newPosition {
				continue
			}
			if err := s.ladderRepo.UpdatePosition(ctx, exec, row.ID, row.Position-1); err != nil {
				return fmt.Errorf("failed to shift position %d up: %w", row.Position, err)
			}
		}

		if err := s.ladderRepo.UpdatePosition(ctx, exec, promotedRow.ID, newPosition); err != nil {
			return fmt.Errorf("failed to place player back at position %d: %w", newPosition, err)
		}
		rolledBack = true
		return nil
	})
	if err != nil {
		return err
	}

	if rolledBack {
		s.appendHistory(ctx, seasonID, promotedID, prevPosition, newPosition, models.HistoryReasonDisputeReversal)
	}
	return nil
}

func (s *ladderService) RepairPositions(ctx context.Context, seasonID int) (int, error) {
	lock := s.seasonLock(seasonID)
	lock.Lock()
	defer lock.Unlock()

	repaired := 0
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		stuck, err := s.ladderRepo.ListSentinel(ctx, exec, seasonID)
		if err != nil {
			return err
		}
		if len(stuck) == 0 {
			return nil
		}

		active, err := s.ladderRepo.ListActiveBySeason(ctx, exec, seasonID)
		if err != nil {
			return err
		}
		occupied := make(map[int]bool, len(active))
		highest := 0
		for _, row := range active {
			occupied[row.Position] = true
			if row.Position > highest {
				highest = row.Position
			}
		}

		for _, row := range stuck {
			target := firstGap(occupied, highest)
			if err := s.ladderRepo.UpdatePosition(ctx, exec, row.ID, target); err != nil {
				return fmt.Errorf("failed to repair ladder row %d: %w", row.ID, err)
			}
			occupied[target] = true
			if target > highest {
				highest = target
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if repaired > 0 {
		s.logger.Warn("repaired ladder rows stuck at sentinel position",
			slog.Int("season_id", seasonID), slog.Int("repaired", repaired))
	}
	return repaired, nil
}

// loadPair fetches both players' active rows and verifies they occupy two
// distinct positions; anything else means the ladder is inconsistent.
func (s *ladderService) loadPair(ctx context.Context, exec repositories.SQLExecutor, seasonID, firstID, secondID int) (*models.LadderPosition, *models.LadderPosition, error) {
	first, err := s.ladderRepo.GetActiveByUser(ctx, exec, seasonID, firstID)
	if err != nil {
		if errors.Is(err, repositories.ErrLadderPositionNotFound) {
			return nil, nil, ErrLadderEntryNotFound
		}
		return nil, nil, err
	}
	second, err := s.ladderRepo.GetActiveByUser(ctx, exec, seasonID, secondID)
	if err != nil {
		if errors.Is(err, repositories.ErrLadderPositionNotFound) {
			return nil, nil, ErrLadderEntryNotFound
		}
		return nil, nil, err
	}
	if first.Position == second.Position || first.Position == models.SentinelPosition || second.Position == models.SentinelPosition {
		return nil, nil, fmt.Errorf("%w: users %d and %d at positions %d and %d",
			ErrLadderConsistency, firstID, secondID, first.Position, second.Position)
	}
	return first, second, nil
}

// appendHistory is best-effort: a failed history write is logged and never
// fails the ladder operation it documents.
func (s *ladderService) appendHistory(ctx context.Context, seasonID, userID, prev, next int, reason models.LadderHistoryReason) {
	entry := &models.LadderHistory{
		SeasonID:         seasonID,
		UserID:           userID,
		PreviousPosition: prev,
		NewPosition:      next,
		Reason:           reason,
	}
	if err := s.historyRepo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append ladder history",
			slog.Int("season_id", seasonID), slog.Int("user_id", userID), slog.Any("error", err))
	}
}

func clampPosition(desired, max int) int {
	if desired < 1 {
		return 1
	}
	if desired > max {
		return max
	}
	return desired
}

func firstGap(occupied map[int]bool, highest int) int {
	for p := 1; p <= highest; p++ {
		if !occupied[p] {
			return p
		}
	}
	return highest + 1
}
