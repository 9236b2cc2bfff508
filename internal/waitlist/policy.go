package waitlist

import (
	"math/rand"
	"sort"

	"daycareplanner/internal/application"
)

// Policy names the strategy used to order waitlist candidates.
type Policy string

const (
	PolicyApplicationDate   Policy = "application_date"
	PolicyLanguage          Policy = "language"
	PolicyInuk              Policy = "inuk"
	PolicyEnrolledElsewhere Policy = "enrolled_elsewhere"
	PolicyRandom            Policy = "random"
)

// PriorityLanguage is the exact, case-sensitive string the language policy
// matches against languages_spoken_at_home.
const PriorityLanguage = "Inuktitut"

// ParsePolicy maps a raw policy name to a Policy. Unrecognized or empty
// names fall back to the application_date default.
func ParsePolicy(raw string) Policy {
	switch Policy(raw) {
	case PolicyApplicationDate, PolicyLanguage, PolicyInuk, PolicyEnrolledElsewhere, PolicyRandom:
		return Policy(raw)
	}
	return PolicyApplicationDate
}

// Rank orders candidates for admin review. Regardless of policy, pending
// entries sort before waitlisted ones; the policy comparator only orders
// within each status group. The input slice is not modified.
//
// The random policy produces a fresh permutation on every call. Callers must
// not cache its output.
func Rank(candidates []Candidate, policy Policy) []Candidate {
	ranked := append([]Candidate(nil), candidates...)

	if policy == PolicyRandom {
		rand.Shuffle(len(ranked), func(i, j int) {
			ranked[i], ranked[j] = ranked[j], ranked[i]
		})
		// Stable sort preserves the shuffled order within each status group.
		sort.SliceStable(ranked, func(i, j int) bool {
			return statusRank(ranked[i].Status) < statusRank(ranked[j].Status)
		})
		return ranked
	}

	less := comparator(policy)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := statusRank(ranked[i].Status), statusRank(ranked[j].Status)
		if si != sj {
			return si < sj
		}
		return less(ranked[i], ranked[j])
	})
	return ranked
}

// statusRank places pending before waitlisted. Candidates only ever carry
// these two statuses; anything else would be a store bug and sorts last.
func statusRank(status application.ChoiceStatus) int {
	switch status {
	case application.StatusPending:
		return 0
	case application.StatusWaitlisted:
		return 1
	}
	return 2
}

// comparator returns the secondary ordering for a deterministic policy.
// Each boolean policy partitions its priority group first and falls back to
// application date within the partition; equal dates keep insertion order
// via the caller's stable sort.
func comparator(policy Policy) func(a, b Candidate) bool {
	switch policy {
	case PolicyLanguage:
		return partitionByDate(func(c Candidate) bool { return c.SpeaksPriorityLanguage() })
	case PolicyInuk:
		return partitionByDate(func(c Candidate) bool { return c.IsInuk })
	case PolicyEnrolledElsewhere:
		// Priority goes to children with no current care.
		return partitionByDate(func(c Candidate) bool { return !c.HasCurrentPlacement })
	default:
		return byApplicationDate
	}
}

func byApplicationDate(a, b Candidate) bool {
	return a.ApplicationDate.Before(b.ApplicationDate)
}

// partitionByDate ranks candidates for whom priority is true before the
// rest, ordering each group by application date.
func partitionByDate(priority func(Candidate) bool) func(a, b Candidate) bool {
	return func(a, b Candidate) bool {
		pa, pb := priority(a), priority(b)
		if pa != pb {
			return pa
		}
		return byApplicationDate(a, b)
	}
}

// SpeaksPriorityLanguage reports an exact match of PriorityLanguage in the
// child's home languages. Case-sensitive on purpose: the intake form writes
// the canonical spelling.
func (c Candidate) SpeaksPriorityLanguage() bool {
	for _, lang := range c.LanguagesSpokenAtHome {
		if lang == PriorityLanguage {
			return true
		}
	}
	return false
}
