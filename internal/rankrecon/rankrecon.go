// Package rankrecon replays a contest's submission history across its
// 90-minute window and reconstructs, at each grid step (deltaMinutes apart), every
// participant's standing and every question's cumulative solve count. The
// result is what a live leaderboard would have shown at that instant, not
// just the contest's final standings.
package rankrecon

import (
	"sort"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// ContestWindow is the length of a rated contest's submission window.
const ContestWindow = 90 * time.Minute

// failPenalty is the time credited against a participant's tiebreak
// timestamp for each wrong submission, matching the five-minute penalty
// LeetCode applies per incorrect attempt.
const failPenalty = 5 * time.Minute

// Participant identifies a single contestant across a contest's submissions.
type Participant struct {
	Region   models.DataRegion
	Username string
}

// standing is one participant's aggregated state as of a given time point:
// total credit earned, total fail count across all questions, and the
// timestamp of their most recent accepted submission.
type standing struct {
	participant Participant
	creditSum   int
	failSum     int
	lastDate    time.Time
}

// penaltyTime is the tiebreak timestamp: the participant's last accepted
// submission, pushed back by five minutes per wrong attempt along the way.
func (s standing) penaltyTime() time.Time {
	return s.lastDate.Add(time.Duration(s.failSum) * failPenalty)
}

// RankAtTimePoint aggregates every submission up to and including
// timePoint and returns each ranked participant's standing. Participants
// are sorted by total credit descending, then by penalty time ascending;
// ties in both share a rank, following standard competition ranking. The
// second return value is the number of participants ranked (tied
// participants each count); callers use that count plus one as the sentinel
// rank for participants with no qualifying submissions yet.
func RankAtTimePoint(submissions []models.Submission, timePoint time.Time) (map[Participant]int, int) {
	byParticipant := make(map[Participant]*standing)

	for _, sub := range submissions {
		if sub.Date.After(timePoint) {
			continue
		}
		key := Participant{Region: sub.Region, Username: sub.Username}
		s, ok := byParticipant[key]
		if !ok {
			s = &standing{participant: key}
			byParticipant[key] = s
		}
		s.creditSum += sub.Credit
		s.failSum += sub.FailCount
		if sub.Date.After(s.lastDate) {
			s.lastDate = sub.Date
		}
	}

	standings := make([]*standing, 0, len(byParticipant))
	for _, s := range byParticipant {
		standings = append(standings, s)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].creditSum != standings[j].creditSum {
			return standings[i].creditSum > standings[j].creditSum
		}
		return standings[i].penaltyTime().Before(standings[j].penaltyTime())
	})

	rankMap := make(map[Participant]int, len(standings))
	rawRank := 0
	var lastCredit int
	var lastPenalty time.Time
	for i, s := range standings {
		rawRank++
		if i > 0 && s.creditSum == lastCredit && s.penaltyTime().Equal(lastPenalty) {
			rankMap[s.participant] = rankMap[standings[i-1].participant]
		} else {
			rankMap[s.participant] = rawRank
		}
		lastCredit = s.creditSum
		lastPenalty = s.penaltyTime()
	}

	return rankMap, rawRank
}

// RealTimeRanks replays the contest in deltaMinutes steps from contestStart
// to contestStart+90m and returns each participant's rank at every step.
// participants fixes the full roster up front (every entrant with a
// non-zero final score) so a participant who hasn't submitted anything yet
// at a given step still gets an entry: the sentinel rank, one past the
// last ranked participant, rather than being omitted from the series.
func RealTimeRanks(submissions []models.Submission, participants []Participant, contestStart time.Time, deltaMinutes int) map[Participant][]int {
	series := make(map[Participant][]int, len(participants))
	for _, p := range participants {
		series[p] = make([]int, 0, int(ContestWindow/time.Duration(deltaMinutes)/time.Minute))
	}

	step := time.Duration(deltaMinutes) * time.Minute
	stepCount := int(ContestWindow / step)

	for i := 1; i <= stepCount; i++ {
		timePoint := contestStart.Add(time.Duration(i) * step)
		rankMap, rawRank := RankAtTimePoint(submissions, timePoint)
		sentinelRank := rawRank + 1

		for _, p := range participants {
			if rank, ok := rankMap[p]; ok {
				series[p] = append(series[p], rank)
			} else {
				series[p] = append(series[p], sentinelRank)
			}
		}
	}

	return series
}

// QuestionSolveCounts replays the contest and returns, per question ID, the
// cumulative number of accepted submissions at each deltaMinutes step —
// the series a "how many people have solved this so far" live chart draws
// from.
func QuestionSolveCounts(submissions []models.Submission, questionIDs []int, contestStart time.Time, deltaMinutes int) map[int][]int {
	byQuestion := make(map[int][]time.Time, len(questionIDs))
	for _, qid := range questionIDs {
		byQuestion[qid] = nil
	}
	for _, sub := range submissions {
		if _, tracked := byQuestion[sub.QuestionID]; tracked {
			byQuestion[sub.QuestionID] = append(byQuestion[sub.QuestionID], sub.Date)
		}
	}
	for qid, dates := range byQuestion {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		byQuestion[qid] = dates
	}

	step := time.Duration(deltaMinutes) * time.Minute
	stepCount := int(ContestWindow / step)

	counts := make(map[int][]int, len(questionIDs))
	for _, qid := range questionIDs {
		dates := byQuestion[qid]
		series := make([]int, 0, stepCount)
		for i := 1; i <= stepCount; i++ {
			timePoint := contestStart.Add(time.Duration(i) * step)
			n := sort.Search(len(dates), func(k int) bool { return dates[k].After(timePoint) })
			series = append(series, n)
		}
		counts[qid] = series
	}

	return counts
}
