// Package game holds the pure scoring rules for the number-guessing game:
// winning-number math, winner selection, progressive rule unlocking, choice
// validation, score deltas and elimination checks. It keeps no state; the
// round lifecycle in the service layer feeds it and applies its results.
package game

import (
	"errors"
	"sort"
)

const (
	// MinChoice and MaxChoice bound a valid submission.
	MinChoice = 0
	MaxChoice = 100

	// EliminationScore is the floor at which a player is eliminated.
	EliminationScore = -10

	// TargetFactor is applied to the average of all submissions.
	TargetFactor = 0.8
)

// Rule identifiers, unlocked progressively by elimination count.
const (
	// RuleDuplicate rejects a submission equal to one already locked in.
	RuleDuplicate = 1
	// RuleExactPenalty doubles the loser penalty when someone hit the
	// winning number exactly.
	RuleExactPenalty = 2
	// RuleZeroHundred makes a 100-chooser win outright when someone
	// else chose 0.
	RuleZeroHundred = 3
)

var (
	ErrChoiceOutOfRange = errors.New("choice out of range")
	ErrDuplicateChoice  = errors.New("choice already taken this round")
)

// Entry is one submitted choice. Slices of entries preserve submission
// order, which decides ties and duplicate validation.
type Entry struct {
	UserID string
	Choice int
}

// Standing pairs a player with their cumulative score. Slices preserve
// join order, which stable sorts keep for display.
type Standing struct {
	UserID     string
	Score      int
	Eliminated bool
}

// ScoreDelta is one player's score change for a round.
type ScoreDelta struct {
	UserID string
	Delta  int
}

// Result is the outcome of evaluating one round's submissions.
type Result struct {
	Entries    []Entry
	Average    float64
	Target     float64
	WinnerID   string
	SpecialWin bool
	ExactMatch bool
}

// WinningNumber computes the round target: the arithmetic mean of the
// choices times 0.8. Plain float division, no rounding anywhere.
func WinningNumber(choices []int) float64 {
	if len(choices) == 0 {
		return 0
	}
	sum := 0
	for _, c := range choices {
		sum += c
	}
	return float64(sum) / float64(len(choices)) * TargetFactor
}

// Evaluate scores one round of submissions under the given active rules.
// Entries must be in submission order and non-empty.
//
// With rule 3 active, a round containing both a 0 and a 100 is won
// outright by the first player who chose 100. Otherwise the winner is the
// entry closest to the target, first submitter winning exact ties.
func Evaluate(entries []Entry, rules []int) Result {
	if len(entries) == 0 {
		return Result{}
	}

	choices := make([]int, len(entries))
	sum := 0
	for i, e := range entries {
		choices[i] = e.Choice
		sum += e.Choice
	}
	avg := float64(sum) / float64(len(entries))

	res := Result{
		Entries: entries,
		Average: avg,
		Target:  avg * TargetFactor,
	}

	if RuleActive(rules, RuleZeroHundred) {
		if winner, ok := specialWinner(entries); ok {
			res.WinnerID = winner
			res.SpecialWin = true
			res.ExactMatch = hasExactMatch(entries, res.Target)
			return res
		}
	}

	best := entries[0]
	bestDist := distance(best.Choice, res.Target)
	for _, e := range entries[1:] {
		if d := distance(e.Choice, res.Target); d < bestDist {
			best = e
			bestDist = d
		}
	}
	res.WinnerID = best.UserID
	res.ExactMatch = hasExactMatch(entries, res.Target)
	return res
}

// specialWinner reports the first 100-chooser, valid only when some other
// entry is 0.
func specialWinner(entries []Entry) (string, bool) {
	hasZero := false
	for _, e := range entries {
		if e.Choice == MinChoice {
			hasZero = true
			break
		}
	}
	if !hasZero {
		return "", false
	}
	for _, e := range entries {
		if e.Choice == MaxChoice {
			return e.UserID, true
		}
	}
	return "", false
}

// hasExactMatch compares submitted integers against the float target with
// plain equality. The target is integral only when avg*0.8 happens to be
// whole, so this rarely fires; the comparison is intentionally not rounded.
func hasExactMatch(entries []Entry, target float64) bool {
	for _, e := range entries {
		if float64(e.Choice) == target {
			return true
		}
	}
	return false
}

func distance(choice int, target float64) float64 {
	d := float64(choice) - target
	if d < 0 {
		return -d
	}
	return d
}

// ActiveRules maps an elimination count to the unlocked rule set. The set
// only ever grows as eliminations accrue.
func ActiveRules(eliminations int) []int {
	switch {
	case eliminations >= 3:
		return []int{RuleDuplicate, RuleExactPenalty, RuleZeroHundred}
	case eliminations >= 2:
		return []int{RuleDuplicate, RuleExactPenalty}
	default:
		return []int{}
	}
}

// RuleActive reports whether the rule id is in the active set.
func RuleActive(rules []int, rule int) bool {
	for _, r := range rules {
		if r == rule {
			return true
		}
	}
	return false
}

// ValidateChoice checks a submission against the bounds and, when rule 1
// is active, against the choices other non-eliminated players have already
// locked in this round. prior holds only submissions received so far, in
// order; there is no cross-check once a choice is accepted, so a later
// duplicate is only caught relative to earlier submitters.
func ValidateChoice(choice int, prior []Entry, rules []int) error {
	if choice < MinChoice || choice > MaxChoice {
		return ErrChoiceOutOfRange
	}
	if RuleActive(rules, RuleDuplicate) {
		for _, e := range prior {
			if e.Choice == choice {
				return ErrDuplicateChoice
			}
		}
	}
	return nil
}

// Deltas computes the score change for every player in the round. The
// winner gains one point, other non-eliminated players lose one (two when
// rule 2 is active and the round had an exact match), and eliminated
// players are frozen at zero. Output order follows the input.
func Deltas(players []Standing, winnerID string, exactMatch bool, rules []int) []ScoreDelta {
	penalty := -1
	if RuleActive(rules, RuleExactPenalty) && exactMatch {
		penalty = -2
	}

	deltas := make([]ScoreDelta, len(players))
	for i, p := range players {
		d := ScoreDelta{UserID: p.UserID}
		switch {
		case p.Eliminated:
			d.Delta = 0
		case p.UserID == winnerID:
			d.Delta = 1
		default:
			d.Delta = penalty
		}
		deltas[i] = d
	}
	return deltas
}

// IsEliminated reports whether a score has hit the elimination floor.
func IsEliminated(score int) bool {
	return score <= EliminationScore
}

// GameOver reports whether at most one player remains non-eliminated.
func GameOver(players []Standing) bool {
	active := 0
	for _, p := range players {
		if !p.Eliminated {
			active++
		}
	}
	return active <= 1
}

// Standings sorts players by score descending. The sort is stable so
// tied players keep their join order.
func Standings(players []Standing) []Standing {
	out := make([]Standing, len(players))
	copy(out, players)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
