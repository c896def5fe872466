package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/botfleet/internal/admission"
	"github.com/xaenox/botfleet/internal/botconfig"
	"github.com/xaenox/botfleet/internal/countstore"
	"github.com/xaenox/botfleet/internal/models"
	"github.com/xaenox/botfleet/internal/simulator"
	"github.com/xaenox/botfleet/internal/storage"
	"go.uber.org/zap"
)

var free = Owner{ID: "user-1", Plan: admission.PlanFree}

func validRaw() botconfig.Raw {
	return botconfig.Raw{
		ActivityLevel: 5,
		Keywords:      "automation, productivity, AI",
		Schedule:      models.Schedule{Start: "09:00", End: "17:00"},
		RespectLimits: true,
	}
}

func newTestRegistry(t *testing.T) (*Registry, *simulator.Simulator, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	sim := simulator.New(store, countstore.NewMemCountStore(), simulator.DefaultOptions(), zap.NewNop())
	r := New(store, sim, admission.DefaultPolicy, zap.NewNop())
	r.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return r, sim, store
}

func countActivities(t *testing.T, store *storage.MemoryStorage, botID string, typ models.ActivityType) int {
	t.Helper()
	all, err := store.RecentActivities(context.Background(), 1000)
	require.NoError(t, err)
	n := 0
	for _, a := range all {
		if a.BotID == botID && a.Type == typ {
			n++
		}
	}
	return n
}

func TestCreateBot(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	r, sim, store := newTestRegistry(t)

	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.ContentCreatorBot, Config: validRaw()})
	require.NoError(t, err)

	assert.NotEmpty(bot.ID)
	assert.Equal("Content Creator Bot", bot.Name)
	assert.Equal(DefaultDescription(models.ContentCreatorBot), bot.Description)
	assert.True(bot.IsActive)
	assert.Equal([]string{"automation", "productivity", "AI"}, bot.Config.Keywords)
	assert.IsType(&models.ContentStats{}, bot.Stats)
	assert.True(sim.Enrolled(bot.ID))
	assert.Equal(1, countActivities(t, store, bot.ID, models.ActivityCreate))

	stored, err := r.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(bot.Config, stored.Config)
}

func TestCreateBotKeepsGivenName(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	bot, err := r.CreateBot(context.Background(), free, CreateRequest{
		Type:        models.FollowerBot,
		Name:        "  Growth helper ",
		Description: "Finds founders",
		Config:      validRaw(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Growth helper", bot.Name)
	assert.Equal(t, "Finds founders", bot.Description)
}

func TestCreateBotQuota(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	r, _, store := newTestRegistry(t)

	for i := 0; i < 3; i++ {
		_, err := r.CreateBot(ctx, free, CreateRequest{Type: models.EngagementBot, Config: validRaw()})
		require.NoError(t, err)
	}

	_, err := r.CreateBot(ctx, free, CreateRequest{Type: models.EngagementBot, Config: validRaw()})
	var quota *admission.QuotaExceededError
	require.True(t, errors.As(err, &quota))
	assert.Equal(admission.PlanFree, quota.Plan)
	assert.Equal(3, quota.Limit)

	bots, err := r.ListBots(ctx, free.ID)
	require.NoError(t, err)
	assert.Len(bots, 3)
	acts, err := store.RecentActivities(ctx, 100)
	require.NoError(t, err)
	assert.Len(acts, 3)

	// other owners and paid plans are unaffected
	_, err = r.CreateBot(ctx, Owner{ID: "user-2", Plan: admission.PlanFree}, CreateRequest{Type: models.EngagementBot, Config: validRaw()})
	assert.NoError(err)
	pro := Owner{ID: "user-3", Plan: admission.PlanPro}
	for i := 0; i < 5; i++ {
		_, err = r.CreateBot(ctx, pro, CreateRequest{Type: models.AnalyticsBot, Config: validRaw()})
		assert.NoError(err)
	}
}

func TestCreateBotQuotaUnderContention(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestRegistry(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.CreateBot(ctx, free, CreateRequest{Type: models.FollowerBot, Config: validRaw()})
			mu.Lock()
			defer mu.Unlock()
			var quota *admission.QuotaExceededError
			switch {
			case err == nil:
				created++
			case errors.As(err, &quota):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, created)
	assert.Equal(t, 9, rejected)
	n, err := store.CountBots(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCreateBotRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestRegistry(t)

	raw := validRaw()
	raw.ActivityLevel = 11
	_, err := r.CreateBot(ctx, free, CreateRequest{Type: models.ContentCreatorBot, Config: raw})
	var verr *botconfig.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "activityLevel", verr.Field)

	_, err = r.CreateBot(ctx, free, CreateRequest{Type: "spam_bot", Config: validRaw()})
	assert.True(t, errors.As(err, &verr))

	n, err := store.CountBots(ctx, free.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetActiveIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	r, sim, store := newTestRegistry(t)

	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.FollowerBot, Config: validRaw()})
	require.NoError(t, err)

	_, err = r.SetActive(ctx, bot.ID, true)
	require.NoError(t, err)
	assert.Zero(countActivities(t, store, bot.ID, models.ActivityResume))

	for i := 0; i < 2; i++ {
		got, err := r.SetActive(ctx, bot.ID, false)
		require.NoError(t, err)
		assert.False(got.IsActive)
	}
	assert.Equal(1, countActivities(t, store, bot.ID, models.ActivityPause))
	assert.False(sim.Enrolled(bot.ID))

	for i := 0; i < 2; i++ {
		got, err := r.SetActive(ctx, bot.ID, true)
		require.NoError(t, err)
		assert.True(got.IsActive)
	}
	assert.Equal(1, countActivities(t, store, bot.ID, models.ActivityResume))
	assert.True(sim.Enrolled(bot.ID))

	_, err = r.SetActive(ctx, "nope", true)
	assert.ErrorIs(err, models.ErrNotFound)
}

func TestPausedBotStopsActing(t *testing.T) {
	ctx := context.Background()
	r, sim, store := newTestRegistry(t)

	raw := validRaw()
	raw.ActivityLevel = 10
	raw.Schedule = models.Schedule{Start: "00:00", End: "23:59"}
	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.ContentCreatorBot, Config: raw})
	require.NoError(t, err)

	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	n, err := sim.Step(ctx, bot.ID, at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.SetActive(ctx, bot.ID, false)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		n, err = sim.Step(ctx, bot.ID, at.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	got, err := store.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.(*models.ContentStats).PostsCount)
}

func TestUpdateConfig(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	r, sim, store := newTestRegistry(t)

	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.EngagementBot, Config: validRaw()})
	require.NoError(t, err)

	raw := botconfig.Raw{ActivityLevel: 9, Keywords: "golang", Schedule: models.Schedule{Start: "20:00", End: "02:00"}}
	got, err := r.UpdateConfig(ctx, bot.ID, raw)
	require.NoError(t, err)
	assert.Equal(9, got.Config.ActivityLevel)
	assert.Equal([]string{"golang"}, got.Config.Keywords)
	assert.False(got.Config.RespectLimits)
	assert.True(sim.Enrolled(bot.ID))
	assert.Equal(1, countActivities(t, store, bot.ID, models.ActivityConfig))

	raw.Keywords = " , "
	_, err = r.UpdateConfig(ctx, bot.ID, raw)
	var verr *botconfig.ValidationError
	assert.True(errors.As(err, &verr))

	stored, err := r.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal([]string{"golang"}, stored.Config.Keywords)

	_, err = r.UpdateConfig(ctx, "nope", raw)
	assert.ErrorIs(err, models.ErrNotFound)
}

func TestUpdateConfigKeepsPausedBotUnscheduled(t *testing.T) {
	ctx := context.Background()
	r, sim, _ := newTestRegistry(t)

	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.EngagementBot, Config: validRaw()})
	require.NoError(t, err)
	_, err = r.SetActive(ctx, bot.ID, false)
	require.NoError(t, err)

	_, err = r.UpdateConfig(ctx, bot.ID, validRaw())
	require.NoError(t, err)
	assert.False(t, sim.Enrolled(bot.ID))
}

func TestRetireBot(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	r, sim, store := newTestRegistry(t)

	var ids []string
	for i := 0; i < 3; i++ {
		bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.AnalyticsBot, Config: validRaw()})
		require.NoError(t, err)
		ids = append(ids, bot.ID)
	}

	require.NoError(t, r.RetireBot(ctx, ids[0]))
	assert.False(sim.Enrolled(ids[0]))
	assert.Equal(1, countActivities(t, store, ids[0], models.ActivityRetire))

	_, err := r.GetBot(ctx, ids[0])
	assert.ErrorIs(err, models.ErrNotFound)
	_, err = r.SetActive(ctx, ids[0], true)
	assert.ErrorIs(err, models.ErrNotFound)
	assert.ErrorIs(r.RetireBot(ctx, ids[0]), models.ErrNotFound)

	bots, err := r.ListBots(ctx, free.ID)
	require.NoError(t, err)
	assert.Len(bots, 2)

	// retiring freed a slot
	_, err = r.CreateBot(ctx, free, CreateRequest{Type: models.AnalyticsBot, Config: validRaw()})
	assert.NoError(err)
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestRegistry(t)

	a, err := r.CreateBot(ctx, free, CreateRequest{Type: models.FollowerBot, Config: validRaw()})
	require.NoError(t, err)
	b, err := r.CreateBot(ctx, free, CreateRequest{Type: models.FollowerBot, Config: validRaw()})
	require.NoError(t, err)
	_, err = r.SetActive(ctx, b.ID, false)
	require.NoError(t, err)

	// a fresh process over the same storage
	sim := simulator.New(store, countstore.NewMemCountStore(), simulator.DefaultOptions(), zap.NewNop())
	restarted := New(store, sim, admission.DefaultPolicy, zap.NewNop())

	n, err := restarted.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, sim.Enrolled(a.ID))
	assert.False(t, sim.Enrolled(b.ID))
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "Engagement Bot", DefaultName(models.EngagementBot))
	assert.Equal(t, "Content Creator Bot", DefaultName(models.ContentCreatorBot))
}

// flakyFeed fails AddActivity while down is set.
type flakyFeed struct {
	*storage.MemoryStorage
	down bool
}

func (f *flakyFeed) AddActivity(ctx context.Context, a *models.Activity) error {
	if f.down {
		return errors.New("db down")
	}
	return f.MemoryStorage.AddActivity(ctx, a)
}

func newFlakyRegistry(t *testing.T) (*Registry, *simulator.Simulator, *flakyFeed) {
	t.Helper()
	store := &flakyFeed{MemoryStorage: storage.NewMemoryStorage()}
	sim := simulator.New(store, countstore.NewMemCountStore(), simulator.DefaultOptions(), zap.NewNop())
	return New(store, sim, admission.DefaultPolicy, zap.NewNop()), sim, store
}

func TestCreateBotRollsBackWhenActivityFails(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	r, sim, store := newFlakyRegistry(t)

	store.down = true
	for i := 0; i < 3; i++ {
		_, err := r.CreateBot(ctx, free, CreateRequest{Type: models.FollowerBot, Config: validRaw()})
		assert.ErrorContains(err, "db down")
	}

	n, err := store.CountBots(ctx, free.ID)
	require.NoError(t, err)
	assert.Zero(n)
	all, err := store.AllBots(ctx)
	require.NoError(t, err)
	assert.Empty(all)

	// the failed attempts did not use up the quota
	store.down = false
	for i := 0; i < 3; i++ {
		bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.FollowerBot, Config: validRaw()})
		require.NoError(t, err)
		assert.True(sim.Enrolled(bot.ID))
	}
}

func TestSetActiveRollsBackWhenActivityFails(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	r, sim, store := newFlakyRegistry(t)

	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.EngagementBot, Config: validRaw()})
	require.NoError(t, err)

	store.down = true
	_, err = r.SetActive(ctx, bot.ID, false)
	assert.ErrorContains(err, "db down")

	got, err := r.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.True(got.IsActive)
	assert.True(sim.Enrolled(bot.ID))

	store.down = false
	_, err = r.SetActive(ctx, bot.ID, false)
	require.NoError(t, err)

	store.down = true
	_, err = r.SetActive(ctx, bot.ID, true)
	assert.Error(err)

	got, err = r.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.False(got.IsActive)
	assert.False(sim.Enrolled(bot.ID))
}

func TestUpdateConfigRollsBackWhenActivityFails(t *testing.T) {
	ctx := context.Background()
	r, _, store := newFlakyRegistry(t)

	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.AnalyticsBot, Config: validRaw()})
	require.NoError(t, err)

	store.down = true
	raw := validRaw()
	raw.ActivityLevel = 9
	_, err = r.UpdateConfig(ctx, bot.ID, raw)
	assert.Error(t, err)

	got, err := r.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Config.ActivityLevel)
}

func TestRetireBotKeepsBotWhenActivityFails(t *testing.T) {
	ctx := context.Background()
	r, sim, store := newFlakyRegistry(t)

	bot, err := r.CreateBot(ctx, free, CreateRequest{Type: models.AnalyticsBot, Config: validRaw()})
	require.NoError(t, err)

	store.down = true
	assert.Error(t, r.RetireBot(ctx, bot.ID))

	got, err := r.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.True(t, sim.Enrolled(bot.ID))
}
