package models

import (
	"encoding/json"
	"fmt"
)

// Stats is the per-type counter payload of a bot. Each implementation only
// carries the fields meaningful for its bot type.
type Stats interface {
	BotType() BotType
	// Interactions counts the actions this bot contributed to the dashboard total.
	Interactions() int
	// SuccessMetric returns a ratio in [0,1] and its weight; ok is false for
	// types without a success-style metric.
	SuccessMetric() (rate float64, weight int, ok bool)
	Clone() Stats
}

type ContentStats struct {
	PostsCount     int     `json:"postsCount"`
	EngagementRate float64 `json:"engagementRate"`
}

func (s *ContentStats) BotType() BotType  { return ContentCreatorBot }
func (s *ContentStats) Interactions() int { return s.PostsCount }
func (s *ContentStats) Clone() Stats      { c := *s; return &c }

func (s *ContentStats) SuccessMetric() (float64, int, bool) {
	return min(s.EngagementRate, 1), s.PostsCount, true
}

// Recompute sets EngagementRate to (likes+comments)/posts, 0 without posts.
func (s *ContentStats) Recompute(likes, comments int) {
	if s.PostsCount == 0 {
		s.EngagementRate = 0
		return
	}
	s.EngagementRate = float64(likes+comments) / float64(s.PostsCount)
}

type EngagementStats struct {
	LikesCount    int `json:"likesCount"`
	CommentsCount int `json:"commentsCount"`
}

func (s *EngagementStats) BotType() BotType                    { return EngagementBot }
func (s *EngagementStats) Interactions() int                   { return s.LikesCount + s.CommentsCount }
func (s *EngagementStats) SuccessMetric() (float64, int, bool) { return 0, 0, false }
func (s *EngagementStats) Clone() Stats                        { c := *s; return &c }

type FollowerStats struct {
	FollowsCount  int     `json:"followsCount"`
	AttemptsCount int     `json:"attemptsCount"`
	SuccessRate   float64 `json:"successRate"`
}

func (s *FollowerStats) BotType() BotType  { return FollowerBot }
func (s *FollowerStats) Interactions() int { return s.FollowsCount }
func (s *FollowerStats) Clone() Stats      { c := *s; return &c }

func (s *FollowerStats) SuccessMetric() (float64, int, bool) {
	return s.SuccessRate, s.AttemptsCount, true
}

// Record counts one follow attempt and refreshes SuccessRate.
func (s *FollowerStats) Record(success bool) {
	s.AttemptsCount++
	if success {
		s.FollowsCount++
	}
	s.SuccessRate = float64(s.FollowsCount) / float64(s.AttemptsCount)
}

type AnalyticsStats struct {
	BotsTracked          int `json:"botsTracked"`
	InteractionsObserved int `json:"interactionsObserved"`
	ReportsGenerated     int `json:"reportsGenerated"`
}

func (s *AnalyticsStats) BotType() BotType                    { return AnalyticsBot }
func (s *AnalyticsStats) Interactions() int                   { return 0 }
func (s *AnalyticsStats) SuccessMetric() (float64, int, bool) { return 0, 0, false }
func (s *AnalyticsStats) Clone() Stats                        { c := *s; return &c }

// NewStats returns the zeroed stats payload for t.
func NewStats(t BotType) (Stats, error) {
	switch t {
	case ContentCreatorBot:
		return &ContentStats{}, nil
	case EngagementBot:
		return &EngagementStats{}, nil
	case FollowerBot:
		return &FollowerStats{}, nil
	case AnalyticsBot:
		return &AnalyticsStats{}, nil
	}
	return nil, fmt.Errorf("unknown bot type %q", t)
}

// DecodeStats decodes a stats payload stored for a bot of type t.
func DecodeStats(t BotType, data []byte) (Stats, error) {
	s, err := NewStats(t)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("error decoding %s stats: %w", t, err)
	}
	return s, nil
}

func (b *Bot) UnmarshalJSON(data []byte) error {
	type plain Bot
	aux := struct {
		*plain
		Stats json.RawMessage `json:"stats"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	stats, err := DecodeStats(b.Type, aux.Stats)
	if err != nil {
		return err
	}
	b.Stats = stats
	return nil
}
