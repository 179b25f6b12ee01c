package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kingofdiamonds/internal/game"
	"kingofdiamonds/internal/model"
	"kingofdiamonds/internal/repository"
)

// Delays groups the pacing between phases so tests can shrink them to
// milliseconds.
type Delays struct {
	Processing time.Duration // all submitted -> round processing
	Reveal     time.Duration // reveal -> scoring
	NextRound  time.Duration // scoring -> next submission phase
	GameOver   time.Duration // scoring -> finished
	Cleanup    time.Duration // finished -> room teardown
	Tick       time.Duration // countdown resolution
}

// DefaultDelays is the production pacing.
func DefaultDelays() Delays {
	return Delays{
		Processing: time.Second,
		Reveal:     5 * time.Second,
		NextRound:  5 * time.Second,
		GameOver:   3 * time.Second,
		Cleanup:    2 * time.Minute,
		Tick:       time.Second,
	}
}

// GameService drives the round lifecycle: waiting -> submission ->
// reveal -> scoring -> submission or finished. Every handler and timer
// callback locks the room, mutates, builds payload snapshots, unlocks,
// then broadcasts. Durable writes go through the recorder and never
// gate a broadcast; the one synchronous exception is the game record
// created at start, which is allowed to fail the start.
type GameService struct {
	registry    *Registry
	games       repository.GameRepo
	recorder    *Recorder
	delays      Delays
	broadcaster Broadcaster
}

// NewGameService creates a new game service
func NewGameService(registry *Registry, games repository.GameRepo, recorder *Recorder, delays Delays) *GameService {
	return &GameService{
		registry: registry,
		games:    games,
		recorder: recorder,
		delays:   delays,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *GameService) broadcast(code, event string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(code, event, payload)
	}
}

func (s *GameService) sendToUser(code, userID, event string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.SendToUser(code, userID, event, payload)
	}
}

// StartGame begins round 1. Only the host may start, only from waiting,
// only with at least the minimum of connected players, all ready.
func (s *GameService) StartGame(ctx context.Context, code, userID string) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	if room.Phase != model.PhaseWaiting || room.GameID != "" {
		room.Mu.Unlock()
		return ErrWrongPhase
	}
	if room.Config.HostID != userID {
		room.Mu.Unlock()
		return ErrNotHost
	}
	if room.ConnectedActive() < model.MinPlayersToStart {
		room.Mu.Unlock()
		return ErrNotEnoughPlayers
	}
	for _, p := range room.Players {
		if p.Connected && !p.Ready {
			room.Mu.Unlock()
			return ErrPlayersNotReady
		}
	}

	// The one synchronous durable write: without a game record there is
	// nothing to hang rounds, choices and results off, so a failure here
	// fails the start and the room stays in waiting.
	gameID, err := s.games.Create(ctx, code)
	if err != nil {
		room.Mu.Unlock()
		return fmt.Errorf("failed to create game record: %w", err)
	}
	if gameID == "" {
		room.Mu.Unlock()
		return fmt.Errorf("failed to create game record")
	}
	room.GameID = gameID
	room.Touch()
	room.Mu.Unlock()

	log.Info().Str("room", code).Str("game", gameID).Msg("game starting")
	s.recorder.LobbyStatus(code, model.LobbyPlaying)
	s.recorder.LobbyGameID(code, gameID)
	s.broadcast(code, "game_starting", map[string]interface{}{"gameId": gameID})

	s.startRound(room)
	return nil
}

// startRound opens a submission phase for the room's current round
// number. Runs at game start and from the scoring->next-round timer.
func (s *GameService) startRound(room *model.Room) {
	room.Mu.Lock()
	if room.Phase != model.PhaseWaiting && room.Phase != model.PhaseScoring {
		room.Mu.Unlock()
		return
	}
	room.ActiveRules = game.ActiveRules(room.Eliminations)
	room.Submissions = room.Submissions[:0]
	for _, p := range room.Players {
		if p.Eliminated {
			continue
		}
		p.HasSubmitted = false
		p.Choice = nil
	}
	room.Phase = model.PhaseSubmission
	room.Remaining = room.Config.RoundDuration
	room.Touch()

	code := room.Code
	gameID := room.GameID
	round := room.Round
	rules := append([]int(nil), room.ActiveRules...)
	snap := room.Snapshot()
	payload := model.RoundStartPayload{
		Round:       round,
		ActiveRules: rules,
		Duration:    room.Config.RoundDuration,
		Players:     snap.Players,
	}
	room.Mu.Unlock()

	s.broadcast(code, "round_start", payload)
	s.recorder.RoundStarted(gameID, round, rules)

	room.StartCountdown(s.delays.Tick, func() bool {
		return s.tick(room)
	})
}

// tick decrements the round clock once. Returning true stops the
// countdown.
func (s *GameService) tick(room *model.Room) bool {
	room.Mu.Lock()
	if room.Phase != model.PhaseSubmission {
		room.Mu.Unlock()
		return true
	}
	room.Remaining--
	code := room.Code
	round := room.Round
	remaining := room.Remaining
	room.Mu.Unlock()

	s.broadcast(code, "timer_update", model.TimerPayload{Round: round, Remaining: remaining})
	if remaining > 0 {
		return false
	}
	s.processRound(room)
	return true
}

// SubmitChoice locks in a player's number for the current round.
func (s *GameService) SubmitChoice(code, userID string, choice int) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	if room.Phase != model.PhaseSubmission {
		room.Mu.Unlock()
		return ErrWrongPhase
	}
	p := room.FindPlayer(userID)
	if p == nil {
		room.Mu.Unlock()
		return ErrPlayerNotFound
	}
	if p.Eliminated {
		room.Mu.Unlock()
		return ErrPlayerEliminated
	}
	if !p.Connected {
		room.Mu.Unlock()
		return ErrPlayerDisconnected
	}
	if p.HasSubmitted {
		room.Mu.Unlock()
		return ErrAlreadySubmitted
	}
	if err := game.ValidateChoice(choice, room.Submissions, room.ActiveRules); err != nil {
		room.Mu.Unlock()
		return err
	}

	c := choice
	p.Choice = &c
	p.HasSubmitted = true
	room.Submissions = append(room.Submissions, game.Entry{UserID: userID, Choice: choice})
	room.Touch()

	allIn := room.AllSubmitted()
	if allIn {
		room.StopCountdown()
	}
	gameID := room.GameID
	round := room.Round
	count := len(room.Players)
	payload := model.PresencePayload{UserID: p.UserID, Name: p.Name}
	room.Mu.Unlock()

	// Who has submitted is public; the number itself is not revealed
	// until the round closes.
	s.broadcast(code, "player_submitted", payload)
	s.sendToUser(code, userID, "submission_confirmed", map[string]interface{}{
		"round":  round,
		"number": choice,
	})
	s.recorder.ChoiceSubmitted(gameID, round, userID, choice)
	s.recorder.LobbyActivity(code, count)

	if allIn {
		// Short grace so the last submitted notice lands before the reveal.
		room.ScheduleTransition(s.delays.Processing, func() {
			s.processRound(room)
		})
	}
	return nil
}

// processRound closes the submission phase and reveals the outcome.
// Reached from the countdown hitting zero or from everyone submitting;
// the phase guard makes whichever comes second a no-op.
func (s *GameService) processRound(room *model.Room) {
	room.Mu.Lock()
	if room.Phase != model.PhaseSubmission {
		room.Mu.Unlock()
		return
	}
	room.StopCountdown()

	// Only players still present count; a submitter who dropped after
	// locking in is excluded from the evaluation.
	entries := make([]game.Entry, 0, len(room.Submissions))
	for _, e := range room.Submissions {
		p := room.FindPlayer(e.UserID)
		if p == nil || p.Eliminated || !p.Connected || !p.HasSubmitted {
			continue
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 || room.ConnectedActive() == 0 {
		code := room.Code
		room.Mu.Unlock()
		log.Info().Str("room", code).Msg("round abandoned, finishing game")
		s.finishGame(room)
		return
	}

	res := game.Evaluate(entries, room.ActiveRules)
	room.Phase = model.PhaseReveal
	room.Touch()

	code := room.Code
	choices := make([]model.ChoiceEntry, len(res.Entries))
	for i, e := range res.Entries {
		choices[i] = model.ChoiceEntry{UserID: e.UserID, Choice: e.Choice}
	}
	payload := model.RevealPayload{
		Round:         room.Round,
		Choices:       choices,
		Average:       res.Average,
		WinningNumber: res.Target,
		WinnerID:      res.WinnerID,
		SpecialWin:    res.SpecialWin,
		ExactMatch:    res.ExactMatch,
	}
	room.Mu.Unlock()

	s.broadcast(code, "round_reveal", payload)
	room.ScheduleTransition(s.delays.Reveal, func() {
		s.applyScoring(room, res)
	})
}

// applyScoring applies the revealed result: score deltas, eliminations,
// rule unlocks, and the verdict on whether the game continues.
func (s *GameService) applyScoring(room *model.Room, res game.Result) {
	room.Mu.Lock()
	if room.Phase != model.PhaseReveal {
		room.Mu.Unlock()
		return
	}

	deltas := game.Deltas(room.Standings(), res.WinnerID, res.ExactMatch, room.ActiveRules)
	deltaEntries := make([]model.DeltaEntry, 0, len(deltas))
	var eliminatedIDs []string
	var elimRecords []model.GamePlayerRecord
	for _, d := range deltas {
		p := room.FindPlayer(d.UserID)
		if p == nil {
			continue
		}
		p.Score += d.Delta
		if !p.Eliminated && game.IsEliminated(p.Score) {
			p.Eliminated = true
			p.EliminatedRound = room.Round
			room.Eliminations++
			eliminatedIDs = append(eliminatedIDs, p.UserID)
			elimRecords = append(elimRecords, model.GamePlayerRecord{
				GameID:          room.GameID,
				UserID:          p.UserID,
				Name:            p.Name,
				Score:           p.Score,
				Eliminated:      true,
				EliminatedRound: p.EliminatedRound,
			})
		}
		deltaEntries = append(deltaEntries, model.DeltaEntry{UserID: d.UserID, Delta: d.Delta, Score: p.Score})
	}

	room.Rounds++
	previous := room.ActiveRules
	room.ActiveRules = game.ActiveRules(room.Eliminations)
	unlocked := newlyUnlocked(previous, room.ActiveRules)

	room.Phase = model.PhaseScoring
	room.Touch()

	code := room.Code
	gameID := room.GameID
	round := room.Round
	count := len(room.Players)
	over := game.GameOver(room.Standings())
	snap := room.Snapshot()
	payload := model.ScoredPayload{
		Round:         round,
		Deltas:        deltaEntries,
		Eliminated:    eliminatedIDs,
		UnlockedRules: unlocked,
		ActiveRules:   append([]int(nil), room.ActiveRules...),
		Players:       snap.Players,
	}
	if !over {
		room.Round++
	}
	room.Mu.Unlock()

	s.broadcast(code, "round_scored", payload)
	s.recorder.RoundCompleted(gameID, round, res.Average, res.Target, res.WinnerID, eliminatedIDs)
	for _, rec := range elimRecords {
		s.recorder.PlayerEliminated(rec)
	}
	s.recorder.LobbyActivity(code, count)

	if over {
		room.ScheduleTransition(s.delays.GameOver, func() {
			s.finishGame(room)
		})
	} else {
		room.ScheduleTransition(s.delays.NextRound, func() {
			s.startRound(room)
		})
	}
}

// finishGame ends the game: ranked standings out, durable results and
// lifetime stats recorded, cleanup scheduled. Idempotent via the phase
// guard; abandonment paths land here directly.
func (s *GameService) finishGame(room *model.Room) {
	room.Mu.Lock()
	if room.Phase == model.PhaseFinished {
		room.Mu.Unlock()
		return
	}
	room.Phase = model.PhaseFinished
	room.StopCountdown()
	room.Touch()

	standings := game.Standings(room.Standings())
	winnerID := ""
	for _, st := range standings {
		if !st.Eliminated {
			winnerID = st.UserID
			break
		}
	}

	entries := make([]model.StandingEntry, len(standings))
	for i, st := range standings {
		name := ""
		if p := room.FindPlayer(st.UserID); p != nil {
			name = p.Name
		}
		entries[i] = model.StandingEntry{
			Rank:       i + 1,
			UserID:     st.UserID,
			Name:       name,
			Score:      st.Score,
			Eliminated: st.Eliminated,
		}
	}

	code := room.Code
	gameID := room.GameID
	rounds := room.Rounds
	results := make([]model.GamePlayerRecord, 0, len(room.Players))
	stats := make(map[string]model.StatsDelta, len(room.Players))
	for _, p := range room.Players {
		results = append(results, model.GamePlayerRecord{
			GameID:          gameID,
			UserID:          p.UserID,
			Name:            p.Name,
			Score:           p.Score,
			Eliminated:      p.Eliminated,
			EliminatedRound: p.EliminatedRound,
			Won:             p.UserID == winnerID,
		})
		if p.IsGuest() {
			continue
		}
		delta := model.StatsDelta{RoundsPlayed: rounds, RoundsSurvived: rounds}
		if p.Eliminated {
			delta.RoundsPlayed = p.EliminatedRound
			delta.RoundsSurvived = p.EliminatedRound - 1
		}
		if p.UserID == winnerID {
			delta.GamesWon = 1
		}
		stats[p.UserID] = delta
	}
	payload := model.GameOverPayload{WinnerID: winnerID, Rounds: rounds, Standings: entries}
	room.Mu.Unlock()

	log.Info().Str("room", code).Str("game", gameID).Str("winner", winnerID).Int("rounds", rounds).Msg("game over")
	s.broadcast(code, "game_over", payload)

	s.recorder.GameFinished(gameID, code, winnerID, rounds)
	for _, rec := range results {
		s.recorder.PlayerResult(rec)
	}
	for userID, delta := range stats {
		s.recorder.StatsIncrement(userID, delta)
	}
	if winnerID != "" && !model.IsGuestID(winnerID) {
		s.recorder.WinRecorded(winnerID)
	}

	// Leave the final standings on screen for a while, then free the
	// code for a fresh lobby.
	room.ScheduleTransition(s.delays.Cleanup, func() {
		s.cleanupRoom(code)
	})
}

// cleanupRoom resets the durable lobby and drops the in-memory room.
func (s *GameService) cleanupRoom(code string) {
	log.Debug().Str("room", code).Msg("cleaning up finished room")
	s.recorder.LobbyReset(code)
	s.registry.Delete(code)
}

// newlyUnlocked returns rule ids in next that are missing from prev.
func newlyUnlocked(prev, next []int) []int {
	seen := make(map[int]bool, len(prev))
	for _, id := range prev {
		seen[id] = true
	}
	var out []int
	for _, id := range next {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
