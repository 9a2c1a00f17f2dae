// Package contesttime infers contest start times and weekly/biweekly
// contest slugs from a pair of fixed reference points, shared by the
// dispatcher (deciding what to schedule this minute) and the pipeline
// (reconstructing a contest's start time for rank replay).
package contesttime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/config"
)

// week is the fixed period between two occurrences of the same contest
// cadence; biweekly contests recur every two weeks.
const week = 7 * 24 * time.Hour

// WeeksSince returns how many full weeks have elapsed from base to now,
// rounded down. A negative result means base is in the future.
func WeeksSince(base, now time.Time) int {
	d := now.Sub(base)
	n := int(d / week)
	if d < 0 && d%week != 0 {
		n--
	}
	return n
}

// IsBiweeklySlug reports whether a contest slug names a biweekly contest
// ("biweekly-contest-N") rather than a weekly one.
func IsBiweeklySlug(slug string) bool {
	return strings.HasPrefix(strings.ToLower(slug), "bi")
}

// contestNumber parses the trailing integer off a contest slug, e.g. 294
// from "weekly-contest-294".
func contestNumber(slug string) (int, error) {
	parts := strings.Split(slug, "-")
	if len(parts) == 0 {
		return 0, fmt.Errorf("contesttime: malformed contest slug %q", slug)
	}
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("contesttime: parse contest number from %q: %w", slug, err)
	}
	return n, nil
}

// InferStart computes a contest's scheduled start time from its slug,
// extrapolating off the configured weekly or biweekly reference point.
func InferStart(cfg config.ContestsConfig, slug string) (time.Time, error) {
	num, err := contestNumber(slug)
	if err != nil {
		return time.Time{}, err
	}

	if IsBiweeklySlug(slug) {
		offset := num - cfg.BiweeklyRefSlugNumber
		return cfg.BiweeklyRefTime.Add(time.Duration(offset) * 2 * week), nil
	}
	offset := num - cfg.WeeklyRefSlugNumber
	return cfg.WeeklyRefTime.Add(time.Duration(offset) * week), nil
}

// WeeklyContestSlug returns the slug of the weekly contest scheduled to
// start at now, extrapolated from the configured reference slug/time.
func WeeklyContestSlug(cfg config.ContestsConfig, now time.Time) string {
	passed := WeeksSince(cfg.WeeklyRefTime, now)
	return fmt.Sprintf("weekly-contest-%d", cfg.WeeklyRefSlugNumber+passed)
}

// IsWeeklyTriggerMinute reports whether now falls on the weekday/hour/minute
// a weekly contest starts at. The reference start time doubles as the
// schedule definition: weekly contests recur on the same weekday and
// time-of-day as WeeklyRefTime itself.
func IsWeeklyTriggerMinute(cfg config.ContestsConfig, now time.Time) bool {
	return sameClockMinute(cfg.WeeklyRefTime, now)
}

// IsBiweeklyTriggerMinute reports whether now falls on the weekday/hour/
// minute a biweekly contest starts at, independent of which week of the
// two-week cycle now falls on — callers combine this with
// BiweeklyContestSlug's on/off-cycle result to decide whether to act.
func IsBiweeklyTriggerMinute(cfg config.ContestsConfig, now time.Time) bool {
	return sameClockMinute(cfg.BiweeklyRefTime, now)
}

func sameClockMinute(ref, now time.Time) bool {
	return now.Weekday() == ref.Weekday() && now.Hour() == ref.Hour() && now.Minute() == ref.Minute()
}

// BiweeklyContestSlug returns the slug of the biweekly contest scheduled to
// start at now, and whether this week actually falls on a biweekly
// cadence boundary — biweekly contests recur every other week, so half of
// the weeks that land on the biweekly time-of-day/weekday are not actual
// contest starts.
func BiweeklyContestSlug(cfg config.ContestsConfig, now time.Time) (string, bool) {
	passed := WeeksSince(cfg.BiweeklyRefTime, now)
	if passed%2 != 0 {
		return "", false
	}
	return fmt.Sprintf("biweekly-contest-%d", cfg.BiweeklyRefSlugNumber+passed/2), true
}
