package domain

import "fmt"

type CandidateId int64

func (id CandidateId) String() string {
	return fmt.Sprintf("%d", id)
}

// Candidate is a votable entity. The backend owns the vote count, the client only displays it.
type Candidate struct {
	Id    CandidateId `json:"id"`
	Name  string      `json:"name"`
	Votes int64       `json:"votes"`
}

// Snapshot is the most recently fetched candidate list in backend order.
// All statistics are derived on demand, nothing is cached.
type Snapshot []Candidate

// TotalVotes returns the sum of all votes in the snapshot.
func (s Snapshot) TotalVotes() int64 {
	var total int64
	for _, c := range s {
		total += c.Votes
	}
	return total
}

// Percentage returns the share of the given vote count in percent, or 0 if no votes were cast at all.
func (s Snapshot) Percentage(votes int64) float64 {
	total := s.TotalVotes()
	if total == 0 {
		return 0
	}
	return float64(votes) / float64(total) * 100
}

// Leading returns the candidate with the most votes. Ties are resolved in favor of the candidate that comes
// first in snapshot order. The second return value is false for an empty snapshot.
func (s Snapshot) Leading() (Candidate, bool) {
	if len(s) == 0 {
		return Candidate{}, false
	}

	leading := s[0]
	for _, c := range s[1:] {
		if c.Votes > leading.Votes {
			leading = c
		}
	}
	return leading, true
}

// IsLeading reports whether the candidate should be highlighted as leading: it must be the leading candidate
// and must have received at least one vote.
func (s Snapshot) IsLeading(id CandidateId) bool {
	leading, ok := s.Leading()
	return ok && leading.Votes > 0 && leading.Id == id
}

// Find returns the candidate with the given id.
func (s Snapshot) Find(id CandidateId) (Candidate, bool) {
	for _, c := range s {
		if c.Id == id {
			return c, true
		}
	}
	return Candidate{}, false
}
