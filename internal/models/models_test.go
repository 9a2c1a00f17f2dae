package models

import "testing"

func TestContest_IsBiweekly(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"biweekly-contest-120", true},
		{"Biweekly-Contest-120", true},
		{"weekly-contest-406", false},
		{"", false},
		{"b", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			c := Contest{Slug: tt.slug}
			if got := c.IsBiweekly(); got != tt.want {
				t.Errorf("Contest{Slug: %q}.IsBiweekly() = %v, want %v", tt.slug, got, tt.want)
			}
		})
	}
}
