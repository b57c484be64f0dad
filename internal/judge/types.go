package judge

import "fmt"

// SpecialTag marks problems excluded from every recommendation path.
const SpecialTag = "*special"

// ProblemKey identifies a problem. Two problems are the same problem iff
// their keys are equal; rating and tags are not part of identity.
type ProblemKey struct {
	ContestID int64
	Index     string
}

// Problem is a catalog entry as served by problemset.problems.
// Rating is 0 when the judge has not assigned one yet.
type Problem struct {
	ContestID int64    `json:"contestId"`
	Index     string   `json:"index"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

func (p Problem) Key() ProblemKey {
	return ProblemKey{ContestID: p.ContestID, Index: p.Index}
}

// URL returns the public permalink for the problem.
func (p Problem) URL() string {
	return fmt.Sprintf("https://codeforces.com/problemset/problem/%d/%s", p.ContestID, p.Index)
}

// HasTag reports whether the problem carries the given (already normalized) tag.
func (p Problem) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Verdicts the engine cares about. Anything else is just "not accepted".
const (
	VerdictOK           = "OK"
	VerdictCompileError = "COMPILATION_ERROR"
)

// Submission is one user.status record. Verdict is empty while the run is
// still in the judging queue.
type Submission struct {
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Problem             Problem `json:"problem"`
	Verdict             string  `json:"verdict"`
	Author              Author  `json:"author"`
}

type Author struct {
	ParticipantType string `json:"participantType"`
}

// IsAccepted reports whether the run passed. Verdict comparison is
// case-sensitive: only the exact "OK" counts.
func (s Submission) IsAccepted() bool {
	return s.Verdict == VerdictOK
}

func (s Submission) IsCompileError() bool {
	return s.Verdict == VerdictCompileError
}

// Score reduces the submission to the duel ordering (passed, -creationTime):
// an accepted, earlier run of the target problem beats everything else.
// Runs against any other problem score as (false, 0).
type Score struct {
	Passed  bool
	NegTime int64
}

func (s Submission) ScoreAgainst(target ProblemKey) Score {
	if s.Problem.Key() != target {
		return Score{}
	}
	return Score{Passed: s.IsAccepted(), NegTime: -s.CreationTimeSeconds}
}

// Beats implements the lexicographic comparison of two duel scores.
func (a Score) Beats(b Score) bool {
	if a.Passed != b.Passed {
		return a.Passed
	}
	return a.NegTime > b.NegTime
}
