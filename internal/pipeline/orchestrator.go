// Package pipeline ports the contest-crawl-through-rating-delta sequence:
// wait for the data source to settle, refresh contest metadata, snapshot a
// predict-phase ranking and run the rating engine against it, then once the
// contest closes, capture the durable archive and replay its real-time
// standings.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/contesttime"
	"github.com/lc-predictor/ratingpipeline/internal/crawler"
	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/models"
	"github.com/lc-predictor/ratingpipeline/internal/rankrecon"
	"github.com/lc-predictor/ratingpipeline/internal/rating"
	"github.com/lc-predictor/ratingpipeline/internal/store"
)

// Orchestrator wires the store, the shared fetcher, and the rating engine
// into the contest lifecycle's handler-layer operations. A single fetcher
// serves both regions: every crawler function resolves US vs CN host
// internally from the models.DataRegion argument it's given.
type Orchestrator struct {
	store    *store.Store
	fetcher  *httpfetch.Fetcher
	engine   rating.Engine
	contests config.ContestsConfig
}

// New builds an Orchestrator.
func New(st *store.Store, fetcher *httpfetch.Fetcher, ratingCfg config.RatingConfig, contestsCfg config.ContestsConfig) *Orchestrator {
	return &Orchestrator{
		store:    st,
		fetcher:  fetcher,
		engine:   rating.NewEngine(ratingCfg.Engine),
		contests: contestsCfg,
	}
}

func (o *Orchestrator) fetcherFor(_ models.DataRegion) *httpfetch.Fetcher {
	return o.fetcher
}

// IsDataReady polls the CN ranking's reported participant count twice,
// ReadinessPollInterval apart, and considers the crawl source settled once
// two consecutive samples agree on a non-zero count — LeetCode's ranking endpoint reports a
// still-climbing count for a few minutes after a contest ends while its
// own backend finishes tallying submissions.
func (o *Orchestrator) IsDataReady(ctx context.Context, contestSlug string) (bool, error) {
	first, err := crawler.FetchContestUserNum(ctx, o.fetcherFor(models.RegionCN), contestSlug, models.RegionCN)
	if err != nil {
		return false, fmt.Errorf("poll cn user_num: %w", err)
	}

	select {
	case <-time.After(o.contests.ReadinessPollInterval):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	second, err := crawler.FetchContestUserNum(ctx, o.fetcherFor(models.RegionCN), contestSlug, models.RegionCN)
	if err != nil {
		return false, fmt.Errorf("poll cn user_num (second sample): %w", err)
	}

	return first > 0 && first == second, nil
}

// WaitUntilDataReady retries IsDataReady at ReadinessPollInterval spacing
// up to ReadinessMaxAttempts times, matching run_prediction_pipeline's
// "keep polling, then proceed anyway and log the gap" posture — a contest
// whose CN crawl never settles still gets predicted, just against
// possibly-incomplete data.
func (o *Orchestrator) WaitUntilDataReady(ctx context.Context, contestSlug string) error {
	attempts := 0
	operation := func() (struct{}, error) {
		attempts++
		ready, err := o.IsDataReady(ctx, contestSlug)
		if err != nil {
			return struct{}{}, err
		}
		if !ready {
			return struct{}{}, fmt.Errorf("cn data for %s not yet settled", contestSlug)
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(o.contests.ReadinessPollInterval)),
		backoff.WithMaxTries(uint(o.contests.ReadinessMaxAttempts)),
	)
	if err != nil {
		logging.Ctx(ctx).Error().Str("contest", contestSlug).Int("attempts", attempts).
			Msg("pipeline: cn data incomplete after max attempts, continuing anyway")
	}
	return nil
}

// SaveRecentAndNextTwoContests refreshes the store's contest metadata from
// the most recently concluded contest and the two upcoming ones.
func (o *Orchestrator) SaveRecentAndNextTwoContests(ctx context.Context) error {
	recent, err := crawler.FetchRecentContests(ctx, o.fetcherFor(models.RegionUS))
	if err != nil {
		return fmt.Errorf("fetch recent contests: %w", err)
	}
	upcoming, err := crawler.FetchNextTwoContests(ctx, o.fetcherFor(models.RegionUS))
	if err != nil {
		return fmt.Errorf("fetch next two contests: %w", err)
	}

	for _, raw := range append(recent, upcoming...) {
		contest := models.Contest{
			Slug:      raw.TitleSlug,
			Title:     raw.Title,
			StartTime: time.Unix(raw.StartTime, 0).UTC(),
			Duration:  int(raw.Duration),
		}
		if err := o.store.UpsertContest(ctx, contest); err != nil {
			return fmt.Errorf("upsert contest %s: %w", raw.TitleSlug, err)
		}
	}
	return nil
}

// predictRecordKey dedupes a batch of freshly-crawled ranking rows the way
// save_predict_contest_records does: first occurrence of (region,
// username) wins, later duplicates are dropped and logged.
type predictRecordKey struct {
	region   models.DataRegion
	username string
}

func resolveUsername(region models.DataRegion, entry crawler.RawRankEntry) string {
	if region == models.RegionUS && entry.UserSlug != "" {
		return entry.UserSlug
	}
	return entry.Username
}

// SavePredictContestRecords snapshots a contest's current standings into
// the predict collection, refreshes any stale participant's rating from
// the live API, and fills each predict row's starting rating/attended
// count ahead of the rating engine's run.
func (o *Orchestrator) SavePredictContestRecords(ctx context.Context, contestSlug string, region models.DataRegion) error {
	entries, _, err := crawler.FetchContestRecords(ctx, o.fetcherFor(region), contestSlug, region)
	if err != nil {
		return fmt.Errorf("fetch contest records: %w", err)
	}

	seen := make(map[predictRecordKey]struct{}, len(entries))
	records := make([]models.PredictRecord, 0, len(entries))
	for _, e := range entries {
		username := resolveUsername(region, e)
		key := predictRecordKey{region: region, username: username}
		if _, dup := seen[key]; dup {
			logging.Ctx(ctx).Warn().Str("contest", contestSlug).Str("username", username).Msg("pipeline: duplicate predict record, skipping")
			continue
		}
		seen[key] = struct{}{}
		records = append(records, models.PredictRecord{ParticipantRecord: models.ParticipantRecord{
			ContestSlug: contestSlug,
			Region:      region,
			Username:    username,
			Rank:        e.Rank,
			Score:       e.Score,
			FinishTime:  e.FinishTime,
		}})
	}

	if err := o.store.ReplacePredictRecords(ctx, contestSlug, records); err != nil {
		return fmt.Errorf("replace predict records: %w", err)
	}

	if err := o.refreshStaleParticipants(ctx, contestSlug, predictPass); err != nil {
		return fmt.Errorf("refresh stale participants: %w", err)
	}

	for _, r := range records {
		if r.Score <= 0 {
			continue
		}
		user, err := o.store.FindUser(ctx, r.Region, r.Username)
		if err != nil {
			return fmt.Errorf("find user %s/%s: %w", r.Region, r.Username, err)
		}
		if user == nil {
			continue
		}
		if err := o.store.FillPredictRatings(ctx, contestSlug, r.Region, r.Username, user.Rating, user.AttendedContestsCount); err != nil {
			return fmt.Errorf("fill predict rating for %s/%s: %w", r.Region, r.Username, err)
		}
	}
	return nil
}

type refreshPass int

const (
	predictPass refreshPass = iota
	archivePass
)

// refreshStaleParticipants re-crawls the current rating of every
// participant whose User record is missing or stale, the Go equivalent of
// save_users_of_contest's two branches.
func (o *Orchestrator) refreshStaleParticipants(ctx context.Context, contestSlug string, pass refreshPass) error {
	var identities []store.ParticipantIdentity
	var err error
	if pass == predictPass {
		identities, err = o.store.StalePredictParticipants(ctx, contestSlug)
	} else {
		identities, err = o.store.ArchiveParticipants(ctx, contestSlug)
	}
	if err != nil {
		return err
	}

	for _, id := range identities {
		ratingPtr, attendedPtr, err := crawler.FetchUserRatingAndAttendedCount(ctx, o.fetcherFor(id.Region), id.Region, id.Username)
		if err != nil {
			logging.Ctx(ctx).Warn().Str("username", id.Username).Str("region", string(id.Region)).Err(err).
				Msg("pipeline: failed to refresh user rating, skipping")
			continue
		}
		userRating, attended := store.ResolveRatingFallback(ratingPtr, attendedPtr)
		if err := o.store.UpsertUser(ctx, models.User{
			Username:              id.Username,
			Region:                id.Region,
			Rating:                userRating,
			AttendedContestsCount: attended,
			UpdatedAt:             time.Now(),
		}); err != nil {
			return fmt.Errorf("upsert user %s/%s: %w", id.Region, id.Username, err)
		}
	}
	return nil
}

// PredictContests runs the rating engine against a contest's predict rows
// and persists the resulting deltas. Biweekly contests write the new
// rating back onto the User collection immediately; weekly contests defer
// that update to the archive pass, matching models.Contest.IsBiweekly's
// grounding in predict_contests' startswith("bi") branch.
func (o *Orchestrator) PredictContests(ctx context.Context, contestSlug string) error {
	all, err := o.store.ListPredictRecords(ctx, contestSlug)
	if err != nil {
		return fmt.Errorf("list predict records: %w", err)
	}

	records := make([]models.PredictRecord, 0, len(all))
	for _, r := range all {
		if r.Score != 0 {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		logging.Ctx(ctx).Warn().Str("contest", contestSlug).Msg("pipeline: no scored predict records, skipping prediction")
		return nil
	}
	sortPredictRecordsByRank(records)

	ranks := make([]int, len(records))
	ratings := make([]float64, len(records))
	attended := make([]int, len(records))
	for i, r := range records {
		ranks[i] = r.Rank
		ratings[i] = r.OldRating
		attended[i] = r.AttendedCnt
	}

	deltas := o.engine.Delta(ranks, ratings, attended)
	for i := range records {
		records[i].Delta = deltas[i]
		records[i].NewRating = ratings[i] + deltas[i]
	}

	if err := o.store.ReplacePredictRecords(ctx, contestSlug, records); err != nil {
		return fmt.Errorf("persist predicted ratings: %w", err)
	}

	if contesttime.IsBiweeklySlug(contestSlug) {
		for _, r := range records {
			if err := o.store.UpsertUser(ctx, models.User{
				Username:              r.Username,
				Region:                r.Region,
				Rating:                r.NewRating,
				AttendedContestsCount: r.AttendedCnt + 1,
				UpdatedAt:             time.Now(),
			}); err != nil {
				return fmt.Errorf("update user rating immediately for %s/%s: %w", r.Region, r.Username, err)
			}
		}
	}

	if err := o.store.SetPredictTime(ctx, contestSlug, time.Now()); err != nil {
		return fmt.Errorf("set predict time: %w", err)
	}
	return nil
}

func sortPredictRecordsByRank(records []models.PredictRecord) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].Rank < records[j-1].Rank; j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}

// SaveArchiveContestRecords captures a contest's durable final standings:
// upsert every ranking row, tombstone anyone who dropped out of the
// standings since the last crawl, optionally refresh stale users, and
// cascade into submission storage and real-time rank replay.
func (o *Orchestrator) SaveArchiveContestRecords(ctx context.Context, contestSlug string, region models.DataRegion, refreshUsers bool) error {
	crawlStart := time.Now()

	entries, submissionMaps, err := crawler.FetchContestRecords(ctx, o.fetcherFor(region), contestSlug, region)
	if err != nil {
		return fmt.Errorf("fetch contest records: %w", err)
	}

	records := make([]models.ArchiveRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, models.ArchiveRecord{
			ParticipantRecord: models.ParticipantRecord{
				ContestSlug: contestSlug,
				Region:      region,
				Username:    resolveUsername(region, e),
				Rank:        e.Rank,
				Score:       e.Score,
				FinishTime:  e.FinishTime,
			},
			UpdatedAt: crawlStart,
		})
	}

	if err := o.store.UpsertArchiveRecords(ctx, records); err != nil {
		return fmt.Errorf("upsert archive records: %w", err)
	}
	if err := o.store.TombstoneStaleArchiveRecords(ctx, contestSlug, crawlStart); err != nil {
		return fmt.Errorf("tombstone stale archive records: %w", err)
	}

	if refreshUsers {
		if err := o.refreshStaleParticipants(ctx, contestSlug, archivePass); err != nil {
			return fmt.Errorf("refresh stale participants: %w", err)
		}
	} else {
		logging.Ctx(ctx).Info().Str("contest", contestSlug).Msg("pipeline: skipping user refresh for this archive pass")
	}

	if err := o.saveSubmissions(ctx, contestSlug, region, entries, submissionMaps); err != nil {
		return fmt.Errorf("save submissions: %w", err)
	}
	return nil
}

// saveSubmissions refreshes a contest's question list, writes every
// participant's per-question submission, then replays the contest's
// 90-minute window to recompute question solve-count series and
// per-participant rank series.
func (o *Orchestrator) saveSubmissions(ctx context.Context, contestSlug string, region models.DataRegion, entries []crawler.RawRankEntry, submissionMaps []crawler.RawSubmissionMap) error {
	rawQuestions, err := crawler.FetchQuestionList(ctx, o.fetcherFor(region), contestSlug, region)
	if err != nil {
		return fmt.Errorf("fetch question list: %w", err)
	}

	questions := make([]models.Question, 0, len(rawQuestions))
	creditByID := make(map[int]int, len(rawQuestions))
	questionIDs := make([]int, 0, len(rawQuestions))
	for i, q := range rawQuestions {
		id, convErr := strconv.Atoi(q.QuestionID)
		if convErr != nil {
			logging.Ctx(ctx).Warn().Str("question_id", q.QuestionID).Msg("pipeline: non-numeric question id, skipping")
			continue
		}
		questions = append(questions, models.Question{
			ContestSlug: contestSlug,
			QuestionID:  id,
			Index:       i + 1,
			Title:       q.Title,
			TitleSlug:   q.TitleSlug,
			Credit:      q.Credit,
		})
		creditByID[id] = q.Credit
		questionIDs = append(questionIDs, id)
	}
	if err := o.store.UpsertQuestions(ctx, contestSlug, questions); err != nil {
		return fmt.Errorf("upsert questions: %w", err)
	}

	var submissions []models.Submission
	for i, entry := range entries {
		if i >= len(submissionMaps) {
			break
		}
		username := resolveUsername(region, entry)
		for qidStr, s := range submissionMaps[i] {
			qid, convErr := strconv.Atoi(qidStr)
			if convErr != nil {
				continue
			}
			submissions = append(submissions, models.Submission{
				ContestSlug: contestSlug,
				Region:      region,
				Username:    username,
				QuestionID:  qid,
				Credit:      creditByID[qid],
				FailCount:   s.FailCount,
				Date:        time.Unix(s.Date, 0).UTC(),
				Lang:        s.Lang,
			})
		}
	}
	if err := o.store.UpsertSubmissions(ctx, submissions); err != nil {
		return fmt.Errorf("upsert submissions: %w", err)
	}

	return o.replayRealTimeStandings(ctx, contestSlug, questionIDs)
}

func (o *Orchestrator) replayRealTimeStandings(ctx context.Context, contestSlug string, questionIDs []int) error {
	contestStart, err := contesttime.InferStart(o.contests, contestSlug)
	if err != nil {
		return fmt.Errorf("infer contest start: %w", err)
	}

	submissions, err := o.store.ListSubmissions(ctx, contestSlug)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}

	gridMinutes := o.contests.RankReconGridMinutes
	if gridMinutes <= 0 {
		gridMinutes = 1
	}

	counts := rankrecon.QuestionSolveCounts(submissions, questionIDs, contestStart, gridMinutes)
	for qid, series := range counts {
		if err := o.store.SetRealTimeCount(ctx, contestSlug, qid, series); err != nil {
			return fmt.Errorf("set real-time count for question %d: %w", qid, err)
		}
	}

	archiveRecords, err := o.store.ListArchiveRecords(ctx, contestSlug)
	if err != nil {
		return fmt.Errorf("list archive records: %w", err)
	}
	participants := make([]rankrecon.Participant, 0, len(archiveRecords))
	for _, r := range archiveRecords {
		if r.Score == 0 {
			continue
		}
		participants = append(participants, rankrecon.Participant{Region: r.Region, Username: r.Username})
	}

	ranks := rankrecon.RealTimeRanks(submissions, participants, contestStart, gridMinutes)
	entries := make([]models.RealTimeRankEntry, 0, len(ranks))
	for p, series := range ranks {
		entries = append(entries, models.RealTimeRankEntry{
			ContestSlug: contestSlug,
			Region:      p.Region,
			Username:    p.Username,
			Ranks:       series,
		})
	}
	return o.store.UpsertRealTimeRanks(ctx, entries)
}
