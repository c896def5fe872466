// Package botconfig validates and normalizes the configuration submitted for a bot.
package botconfig

import (
	"fmt"
	"strings"

	"github.com/xaenox/botfleet/internal/models"
)

const KeywordSeparator = ","

// Raw is a configuration as submitted by a client, before validation.
type Raw struct {
	ActivityLevel int             `json:"activityLevel"`
	Keywords      string          `json:"keywords"`
	Schedule      models.Schedule `json:"schedule"`
	RespectLimits bool            `json:"respectLimits"`
}

// Default is the configuration a bot gets when the client leaves fields out.
func Default() Raw {
	return Raw{
		ActivityLevel: 5,
		Keywords:      "automation, productivity, AI",
		Schedule:      models.Schedule{Start: "09:00", End: "17:00"},
		RespectLimits: true,
	}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Normalize validates raw for a bot of type t and returns its canonical form.
func Normalize(t models.BotType, raw Raw) (models.Config, error) {
	if !t.Valid() {
		return models.Config{}, invalid("type", "unknown bot type %q", t)
	}

	if raw.ActivityLevel < models.MinActivityLevel || raw.ActivityLevel > models.MaxActivityLevel {
		return models.Config{}, invalid("activityLevel", "must be between %d and %d, got %d",
			models.MinActivityLevel, models.MaxActivityLevel, raw.ActivityLevel)
	}

	keywords := ParseKeywords(raw.Keywords)
	if len(keywords) == 0 {
		return models.Config{}, invalid("keywords", "at least one keyword is required")
	}

	start, err := models.ParseClock(strings.TrimSpace(raw.Schedule.Start))
	if err != nil {
		return models.Config{}, invalid("schedule.start", "%v", err)
	}
	end, err := models.ParseClock(strings.TrimSpace(raw.Schedule.End))
	if err != nil {
		return models.Config{}, invalid("schedule.end", "%v", err)
	}

	return models.Config{
		ActivityLevel: raw.ActivityLevel,
		Keywords:      keywords,
		Schedule: models.Schedule{
			Start: models.FormatClock(start),
			End:   models.FormatClock(end),
		},
		RespectLimits: raw.RespectLimits,
	}, nil
}

// ParseKeywords splits a delimited keyword list, trimming entries and dropping empty ones.
func ParseKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, KeywordSeparator) {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// RawFrom turns a normalized config back into its submitted form.
func RawFrom(cfg models.Config) Raw {
	return Raw{
		ActivityLevel: cfg.ActivityLevel,
		Keywords:      strings.Join(cfg.Keywords, KeywordSeparator+" "),
		Schedule:      cfg.Schedule,
		RespectLimits: cfg.RespectLimits,
	}
}
