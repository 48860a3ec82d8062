package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/repositories"
)

// In-memory repository fakes. The tx runner passes a nil executor through,
// which the fakes ignore; transactional semantics are not simulated.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubTxRunner struct{}

func (stubTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// --- ladder ---

type fakeLadderRepo struct {
	rows   []*models.LadderPosition
	nextID int
}

func newFakeLadderRepo() *fakeLadderRepo {
	return &fakeLadderRepo{nextID: 1}
}

func (r *fakeLadderRepo) Create(ctx context.Context, exec repositories.SQLExecutor, pos *models.LadderPosition) error {
	for _, row := range r.rows {
		if row.IsActive && row.SeasonID == pos.SeasonID && row.Position == pos.Position {
			return repositories.ErrLadderPositionConflict
		}
	}
	pos.ID = r.nextID
	r.nextID++
	pos.IsActive = true
	copied := *pos
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *fakeLadderRepo) GetActiveByUser(ctx context.Context, exec repositories.SQLExecutor, seasonID, userID int) (*models.LadderPosition, error) {
	for _, row := range r.rows {
		if row.IsActive && row.SeasonID == seasonID && row.UserID == userID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, repositories.ErrLadderPositionNotFound
}

func (r *fakeLadderRepo) ListActiveBySeason(ctx context.Context, exec repositories.SQLExecutor, seasonID int) ([]*models.LadderPosition, error) {
	var out []*models.LadderPosition
	for _, row := range r.rows {
		if row.IsActive && row.SeasonID == seasonID && row.Position != models.SentinelPosition {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeLadderRepo) ListSentinel(ctx context.Context, exec repositories.SQLExecutor, seasonID int) ([]*models.LadderPosition, error) {
	var out []*models.LadderPosition
	for _, row := range r.rows {
		if row.IsActive && row.SeasonID == seasonID && row.Position == models.SentinelPosition {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLadderRepo) UpdatePosition(ctx context.Context, exec repositories.SQLExecutor, id, position int) error {
	// Enforces the same uniqueness the partial index does, so tests catch
	// any shift ordering that would collide mid-flight.
	var target *models.LadderPosition
	for _, row := range r.rows {
		if row.ID == id {
			target = row
			continue
		}
		if row.IsActive && row.Position == position {
			return repositories.ErrLadderPositionConflict
		}
	}
	if target == nil || !target.IsActive {
		return repositories.ErrLadderPositionNotFound
	}
	target.Position = position
	return nil
}

func (r *fakeLadderRepo) SoftDelete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	for _, row := range r.rows {
		if row.ID == id && row.IsActive {
			row.IsActive = false
			return nil
		}
	}
	return repositories.ErrLadderPositionNotFound
}

// forcePosition bypasses the uniqueness check, used to set up broken states.
func (r *fakeLadderRepo) forcePosition(id, position int) {
	for _, row := range r.rows {
		if row.ID == id {
			row.Position = position
		}
	}
}

type fakeHistoryRepo struct {
	entries []*models.LadderHistory
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *models.LadderHistory) error {
	copied := *entry
	copied.ID = len(r.entries) + 1
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeHistoryRepo) ListByUser(ctx context.Context, seasonID, userID int) ([]*models.LadderHistory, error) {
	var out []*models.LadderHistory
	for _, e := range r.entries {
		if e.SeasonID == seasonID && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) LatestByReason(ctx context.Context, seasonID, userID int, reason models.LadderHistoryReason) (*models.LadderHistory, error) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.SeasonID == seasonID && e.UserID == userID && e.Reason == reason {
			copied := *e
			return &copied, nil
		}
	}
	return nil, repositories.ErrLadderHistoryNotFound
}

// --- users ---

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) add(id int, role models.UserRole) *models.User {
	u := &models.User{
		ID:        id,
		FirstName: fmt.Sprintf("Player%d", id),
		LastName:  "Test",
		Email:     fmt.Sprintf("player%d@club.test", id),
		Role:      role,
	}
	r.users[id] = u
	if id >= r.nextID {
		r.nextID = id + 1
	}
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ListByIDs(ctx context.Context, ids []int) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id int, role models.UserRole) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Role = role
	return nil
}

// --- seasons ---

type fakeSeasonRepo struct {
	seasons map[int]*models.Season
	nextID  int
}

func newFakeSeasonRepo() *fakeSeasonRepo {
	return &fakeSeasonRepo{seasons: make(map[int]*models.Season), nextID: 1}
}

func (r *fakeSeasonRepo) add(id int, status models.SeasonStatus, wildcards int) *models.Season {
	s := &models.Season{ID: id, Name: fmt.Sprintf("Season %d", id), Status: status, WildcardsPerPlayer: wildcards}
	r.seasons[id] = s
	if id >= r.nextID {
		r.nextID = id + 1
	}
	return s
}

func (r *fakeSeasonRepo) Create(ctx context.Context, season *models.Season) error {
	season.ID = r.nextID
	r.nextID++
	copied := *season
	r.seasons[season.ID] = &copied
	return nil
}

func (r *fakeSeasonRepo) GetByID(ctx context.Context, id int) (*models.Season, error) {
	s, ok := r.seasons[id]
	if !ok {
		return nil, repositories.ErrSeasonNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSeasonRepo) GetActive(ctx context.Context) (*models.Season, error) {
	ids := make([]int, 0, len(r.seasons))
	for id := range r.seasons {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s := r.seasons[id]
		if s.Status == models.SeasonActive || s.Status == models.SeasonPlayoffs {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repositories.ErrSeasonNotFound
}

func (r *fakeSeasonRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.SeasonStatus) error {
	s, ok := r.seasons[id]
	if !ok {
		return repositories.ErrSeasonNotFound
	}
	s.Status = status
	return nil
}

func (r *fakeSeasonRepo) SetPlayoffWinner(ctx context.Context, exec repositories.SQLExecutor, id, winnerID int) error {
	s, ok := r.seasons[id]
	if !ok {
		return repositories.ErrSeasonNotFound
	}
	s.PlayoffWinnerID = &winnerID
	return nil
}

// --- challenges ---

type fakeChallengeRepo struct {
	challenges map[int]*models.Challenge
	nextID     int
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{challenges: make(map[int]*models.Challenge), nextID: 1}
}

func (r *fakeChallengeRepo) Create(ctx context.Context, challenge *models.Challenge) error {
	challenge.ID = r.nextID
	r.nextID++
	copied := *challenge
	r.challenges[challenge.ID] = &copied
	return nil
}

func (r *fakeChallengeRepo) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return nil, repositories.ErrChallengeNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeChallengeRepo) ListBySeason(ctx context.Context, seasonID int, status *models.ChallengeStatus) ([]*models.Challenge, error) {
	var out []*models.Challenge
	ids := make([]int, 0, len(r.challenges))
	for id := range r.challenges {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		c := r.challenges[id]
		if c.SeasonID != seasonID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeChallengeRepo) HasActiveForUser(ctx context.Context, userID int) (bool, error) {
	for _, c := range r.challenges {
		if c.Status.IsActive() && (c.ChallengerID == userID || c.ChallengedID == userID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeChallengeRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ChallengeStatus) error {
	c, ok := r.challenges[id]
	if !ok {
		return repositories.ErrChallengeNotFound
	}
	c.Status = status
	return nil
}

func (r *fakeChallengeRepo) SetAccepted(ctx context.Context, exec repositories.SQLExecutor, id int, date time.Time, location *string) error {
	c, ok := r.challenges[id]
	if !ok {
		return repositories.ErrChallengeNotFound
	}
	c.Status = models.ChallengeAccepted
	c.AcceptedDate = &date
	c.AcceptedLocation = location
	return nil
}

// --- matches ---

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = r.nextID
	r.nextID++
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) ListBySeason(ctx context.Context, seasonID int, matchType *models.MatchType) ([]*models.Match, error) {
	var out []*models.Match
	ids := make([]int, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		m := r.matches[id]
		if m.SeasonID != seasonID {
			continue
		}
		if matchType != nil && m.MatchType != *matchType {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, id int, sets []models.SetScore, finalSetType *models.FinalSetType, winnerID int, completedAt time.Time) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Sets = sets
	m.FinalSetType = finalSetType
	m.WinnerID = &winnerID
	m.CompletedAt = &completedAt
	return nil
}

func (r *fakeMatchRepo) SetDisputed(ctx context.Context, id, byUserID int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.IsDisputed = true
	m.DisputedByUserID = &byUserID
	return nil
}

func (r *fakeMatchRepo) ClearDispute(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.IsDisputed = false
	m.DisputedByUserID = nil
	return nil
}

// --- wildcards ---

type fakeWildcardRepo struct {
	usages []*models.WildcardUsage
}

func (r *fakeWildcardRepo) Create(ctx context.Context, usage *models.WildcardUsage) error {
	copied := *usage
	copied.ID = len(r.usages) + 1
	r.usages = append(r.usages, &copied)
	return nil
}

func (r *fakeWildcardRepo) CountByUser(ctx context.Context, seasonID, userID int) (int, error) {
	n := 0
	for _, u := range r.usages {
		if u.SeasonID == seasonID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

// --- brackets ---

type fakeBracketRepo struct {
	brackets map[int]*models.PlayoffBracket
	nextID   int
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{brackets: make(map[int]*models.PlayoffBracket), nextID: 1}
}

func (r *fakeBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bracket *models.PlayoffBracket) error {
	if _, ok := r.brackets[bracket.SeasonID]; ok {
		return repositories.ErrBracketConflict
	}
	bracket.ID = r.nextID
	r.nextID++
	copied := *bracket
	r.brackets[bracket.SeasonID] = &copied
	return nil
}

func (r *fakeBracketRepo) GetBySeason(ctx context.Context, seasonID int) (*models.PlayoffBracket, error) {
	b, ok := r.brackets[seasonID]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBracketRepo) UpdateData(ctx context.Context, exec repositories.SQLExecutor, id int, data models.BracketData) error {
	for _, b := range r.brackets {
		if b.ID == id {
			b.Data = data
			return nil
		}
	}
	return repositories.ErrBracketNotFound
}

// --- misc ---

type recordingProgressor struct {
	matchIDs []int
}

func (p *recordingProgressor) ProgressToNextRound(ctx context.Context, matchID int) error {
	p.matchIDs = append(p.matchIDs, matchID)
	return nil
}
