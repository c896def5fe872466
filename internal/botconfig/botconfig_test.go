package botconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/botfleet/internal/models"
)

func validRaw() Raw {
	return Raw{
		ActivityLevel: 5,
		Keywords:      " automation, productivity ,, AI ",
		Schedule:      models.Schedule{Start: "9:00", End: "17:30"},
		RespectLimits: true,
	}
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Normalize(models.ContentCreatorBot, validRaw())
	require.NoError(t, err)
	assert.Equal(5, cfg.ActivityLevel)
	assert.Equal([]string{"automation", "productivity", "AI"}, cfg.Keywords)
	assert.Equal(models.Schedule{Start: "09:00", End: "17:30"}, cfg.Schedule)
	assert.True(cfg.RespectLimits)
}

func TestNormalizeFixedPoint(t *testing.T) {
	raws := []Raw{
		validRaw(),
		{ActivityLevel: 1, Keywords: "x", Schedule: models.Schedule{Start: "22:00", End: "06:00"}},
		{ActivityLevel: 10, Keywords: "a,b , c", Schedule: models.Schedule{Start: "00:00", End: "23:59"}, RespectLimits: true},
	}
	for _, typ := range models.BotTypes {
		for _, raw := range raws {
			first, err := Normalize(typ, raw)
			require.NoError(t, err)
			second, err := Normalize(typ, RawFrom(first))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []struct {
		name  string
		typ   models.BotType
		mod   func(r *Raw)
		field string
	}{
		{"unknown type", "spammer", func(r *Raw) {}, "type"},
		{"level zero", models.FollowerBot, func(r *Raw) { r.ActivityLevel = 0 }, "activityLevel"},
		{"level eleven", models.FollowerBot, func(r *Raw) { r.ActivityLevel = 11 }, "activityLevel"},
		{"no keywords", models.EngagementBot, func(r *Raw) { r.Keywords = " , ,," }, "keywords"},
		{"bad start", models.AnalyticsBot, func(r *Raw) { r.Schedule.Start = "25:00" }, "schedule.start"},
		{"bad end", models.AnalyticsBot, func(r *Raw) { r.Schedule.End = "noon" }, "schedule.end"},
		{"empty end", models.AnalyticsBot, func(r *Raw) { r.Schedule.End = "" }, "schedule.end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw()
			tc.mod(&raw)
			_, err := Normalize(tc.typ, raw)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestWrapAroundScheduleIsLegal(t *testing.T) {
	raw := validRaw()
	raw.Schedule = models.Schedule{Start: "23:00", End: "02:00"}
	cfg, err := Normalize(models.FollowerBot, raw)
	require.NoError(t, err)
	assert.Equal(t, "23:00", cfg.Schedule.Start)
	assert.Equal(t, "02:00", cfg.Schedule.End)
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Normalize(models.AnalyticsBot, Default())
	require.NoError(t, err)
	assert.Equal(t, models.ActivityMedium, models.BucketFor(cfg.ActivityLevel))
	assert.Equal(t, Default(), RawFrom(cfg))
}
