package contesttime

import (
	"testing"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/config"
)

func testConfig() config.ContestsConfig {
	return config.ContestsConfig{
		WeeklyRefSlugNumber:   294,
		WeeklyRefTime:         time.Date(2022, 5, 22, 2, 30, 0, 0, time.UTC),
		BiweeklyRefSlugNumber: 78,
		BiweeklyRefTime:       time.Date(2022, 5, 14, 14, 30, 0, 0, time.UTC),
	}
}

func TestInferStartWeekly(t *testing.T) {
	cfg := testConfig()

	start, err := InferStart(cfg, "weekly-contest-296")
	if err != nil {
		t.Fatalf("InferStart: %v", err)
	}
	want := cfg.WeeklyRefTime.Add(2 * week)
	if !start.Equal(want) {
		t.Errorf("InferStart(weekly-contest-296) = %v, want %v", start, want)
	}
}

func TestInferStartBiweekly(t *testing.T) {
	cfg := testConfig()

	start, err := InferStart(cfg, "biweekly-contest-80")
	if err != nil {
		t.Fatalf("InferStart: %v", err)
	}
	want := cfg.BiweeklyRefTime.Add(4 * week)
	if !start.Equal(want) {
		t.Errorf("InferStart(biweekly-contest-80) = %v, want %v", start, want)
	}
}

func TestInferStartMalformedSlug(t *testing.T) {
	cfg := testConfig()
	if _, err := InferStart(cfg, "weekly-contest-not-a-number"); err == nil {
		t.Error("InferStart with a non-numeric suffix should error")
	}
}

func TestWeeklyContestSlug(t *testing.T) {
	cfg := testConfig()
	now := cfg.WeeklyRefTime.Add(3 * week)
	if got := WeeklyContestSlug(cfg, now); got != "weekly-contest-297" {
		t.Errorf("WeeklyContestSlug = %q, want weekly-contest-297", got)
	}
}

func TestBiweeklyContestSlugSkipsOffCycleWeeks(t *testing.T) {
	cfg := testConfig()

	onCycle := cfg.BiweeklyRefTime.Add(2 * week)
	slug, ok := BiweeklyContestSlug(cfg, onCycle)
	if !ok {
		t.Fatal("BiweeklyContestSlug should report ready two weeks after the reference")
	}
	if slug != "biweekly-contest-79" {
		t.Errorf("BiweeklyContestSlug = %q, want biweekly-contest-79", slug)
	}

	offCycle := cfg.BiweeklyRefTime.Add(1 * week)
	if _, ok := BiweeklyContestSlug(cfg, offCycle); ok {
		t.Error("BiweeklyContestSlug should report not-ready one week after the reference (odd cadence offset)")
	}
}

func TestIsWeeklyTriggerMinute(t *testing.T) {
	cfg := testConfig()
	if !IsWeeklyTriggerMinute(cfg, cfg.WeeklyRefTime.AddDate(0, 0, 21)) {
		t.Error("IsWeeklyTriggerMinute should match the same weekday/hour/minute three weeks later")
	}
	if IsWeeklyTriggerMinute(cfg, cfg.WeeklyRefTime.Add(time.Hour)) {
		t.Error("IsWeeklyTriggerMinute should not match a different hour")
	}
}

func TestIsBiweeklyTriggerMinute(t *testing.T) {
	cfg := testConfig()
	if !IsBiweeklyTriggerMinute(cfg, cfg.BiweeklyRefTime.AddDate(0, 0, 7)) {
		t.Error("IsBiweeklyTriggerMinute should match the same weekday/hour/minute regardless of cycle parity")
	}
	if IsBiweeklyTriggerMinute(cfg, cfg.BiweeklyRefTime.Add(time.Minute)) {
		t.Error("IsBiweeklyTriggerMinute should not match a different minute")
	}
}

func TestIsBiweeklySlug(t *testing.T) {
	if !IsBiweeklySlug("biweekly-contest-80") {
		t.Error("IsBiweeklySlug(biweekly-contest-80) = false, want true")
	}
	if IsBiweeklySlug("weekly-contest-296") {
		t.Error("IsBiweeklySlug(weekly-contest-296) = true, want false")
	}
}
