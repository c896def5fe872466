package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/botfleet/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))
	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	// Read migrations file
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	// Execute migrations
	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const botColumns = `id, owner_id, name, bot_type, description, is_active, config, stats, created_at, retired_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (*models.Bot, error) {
	var (
		bot        models.Bot
		configJSON []byte
		statsJSON  []byte
		retiredAt  sql.NullTime
	)
	err := row.Scan(
		&bot.ID,
		&bot.OwnerID,
		&bot.Name,
		&bot.Type,
		&bot.Description,
		&bot.IsActive,
		&configJSON,
		&statsJSON,
		&bot.CreatedAt,
		&retiredAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(configJSON, &bot.Config); err != nil {
		return nil, fmt.Errorf("error decoding config of bot %s: %w", bot.ID, err)
	}
	if bot.Stats, err = models.DecodeStats(bot.Type, statsJSON); err != nil {
		return nil, err
	}
	if retiredAt.Valid {
		t := retiredAt.Time
		bot.RetiredAt = &t
	}
	return &bot, nil
}

func encodeBot(bot *models.Bot) (configJSON, statsJSON []byte, err error) {
	if configJSON, err = json.Marshal(bot.Config); err != nil {
		return nil, nil, fmt.Errorf("error encoding config: %w", err)
	}
	if statsJSON, err = json.Marshal(bot.Stats); err != nil {
		return nil, nil, fmt.Errorf("error encoding stats: %w", err)
	}
	return configJSON, statsJSON, nil
}

func (s *PostgresStorage) CreateBot(ctx context.Context, bot *models.Bot) error {
	configJSON, statsJSON, err := encodeBot(bot)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bots (` + botColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.db.ExecContext(ctx, query,
		bot.ID,
		bot.OwnerID,
		bot.Name,
		bot.Type,
		bot.Description,
		bot.IsActive,
		configJSON,
		statsJSON,
		bot.CreatedAt,
		bot.RetiredAt,
	)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetBot(ctx context.Context, id string) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1 AND retired_at IS NULL`

	bot, err := scanBot(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying bot: %w", err)
	}
	return bot, nil
}

func (s *PostgresStorage) UpdateBot(ctx context.Context, bot *models.Bot) error {
	configJSON, statsJSON, err := encodeBot(bot)
	if err != nil {
		return err
	}

	query := `
		UPDATE bots
		SET name = $1, description = $2, is_active = $3, config = $4, stats = $5, retired_at = $6
		WHERE id = $7 AND retired_at IS NULL`

	result, err := s.db.ExecContext(ctx, query,
		bot.Name, bot.Description, bot.IsActive, configJSON, statsJSON, bot.RetiredAt, bot.ID)
	if err != nil {
		return fmt.Errorf("error updating bot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) DeleteBot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting bot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) queryBots(ctx context.Context, query string, args ...any) ([]*models.Bot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying bots: %w", err)
	}
	defer rows.Close()

	bots := []*models.Bot{}
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning bot: %w", err)
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

func (s *PostgresStorage) ListBots(ctx context.Context, ownerID string) ([]*models.Bot, error) {
	return s.queryBots(ctx, `
		SELECT `+botColumns+` FROM bots
		WHERE owner_id = $1 AND retired_at IS NULL
		ORDER BY seq`, ownerID)
}

func (s *PostgresStorage) AllBots(ctx context.Context) ([]*models.Bot, error) {
	return s.queryBots(ctx, `
		SELECT `+botColumns+` FROM bots
		WHERE retired_at IS NULL
		ORDER BY seq`)
}

func (s *PostgresStorage) CountBots(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bots WHERE owner_id = $1 AND retired_at IS NULL`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting bots: %w", err)
	}
	return n, nil
}

func (s *PostgresStorage) AddActivity(ctx context.Context, activity *models.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, activity_type, description, bot_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		activity.ID, activity.Type, activity.Description, nullString(activity.BotID), activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating activity: %w", err)
	}
	return nil
}

func (s *PostgresStorage) RecentActivities(ctx context.Context, limit int) ([]*models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, activity_type, description, bot_id, created_at
		FROM activities
		ORDER BY seq DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying activities: %w", err)
	}
	defer rows.Close()

	activities := []*models.Activity{}
	for rows.Next() {
		a := &models.Activity{}
		var botID sql.NullString
		if err := rows.Scan(&a.ID, &a.Type, &a.Description, &botID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning activity: %w", err)
		}
		a.BotID = botID.String
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *PostgresStorage) CountActivitiesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE created_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting activities: %w", err)
	}
	return n, nil
}

const postColumns = `id, author, bot_id, content, likes, comments, shares, is_from_bot, created_at`

func scanPost(row rowScanner) (*models.Post, error) {
	p := &models.Post{}
	var botID sql.NullString
	err := row.Scan(&p.ID, &p.Author, &botID, &p.Content, &p.Likes, &p.Comments, &p.Shares, &p.IsFromBot, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.BotID = botID.String
	return p, nil
}

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		post.ID, post.Author, nullString(post.BotID), post.Content,
		post.Likes, post.Comments, post.Shares, post.IsFromBot, post.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating post: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying post: %w", err)
	}
	return post, nil
}

func (s *PostgresStorage) RecentPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		ORDER BY seq DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *PostgresStorage) BotPostTotals(ctx context.Context, botID string) (int, int, error) {
	var likes, comments int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(likes), 0), COALESCE(SUM(comments), 0)
		FROM posts WHERE bot_id = $1`, botID).Scan(&likes, &comments)
	if err != nil {
		return 0, 0, fmt.Errorf("error summing post engagement: %w", err)
	}
	return likes, comments, nil
}

func (s *PostgresStorage) LikePost(ctx context.Context, postID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE posts SET likes = likes + 1 WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("error liking post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) AddComment(ctx context.Context, comment *models.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE posts SET comments = comments + 1 WHERE id = $1`, comment.PostID)
	if err != nil {
		return fmt.Errorf("error updating post comments: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	} else if n == 0 {
		return models.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author, bot_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.PostID, comment.Author, nullString(comment.BotID), comment.Content, comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating comment: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStorage) CommentsByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, author, bot_id, content, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY seq`, postID)
	if err != nil {
		return nil, fmt.Errorf("error querying comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		c := &models.Comment{}
		var botID sql.NullString
		if err := rows.Scan(&c.ID, &c.PostID, &c.Author, &botID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning comment: %w", err)
		}
		c.BotID = botID.String
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
