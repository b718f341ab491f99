package catalog

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/iai-group/MovieBot-sub000/types"
)

var columns = map[types.Slot]string{
	types.SlotTitle:     "title",
	types.SlotGenres:    "genres",
	types.SlotKeywords:  "keywords",
	types.SlotDirectors: "directors",
	types.SlotActors:    "actors",
	types.SlotYear:      "year",
	types.SlotDuration:  "duration",
	types.SlotRating:    "rating",
	types.SlotPlot:      "plot",
	types.SlotImdbLink:  "imdb_link",
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS movies (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	genres    TEXT NOT NULL DEFAULT '',
	keywords  TEXT NOT NULL DEFAULT '',
	directors TEXT NOT NULL DEFAULT '',
	actors    TEXT NOT NULL DEFAULT '',
	year      INTEGER NOT NULL DEFAULT 0,
	duration  INTEGER NOT NULL DEFAULT 0,
	rating    REAL NOT NULL DEFAULT 0,
	plot      TEXT NOT NULL DEFAULT '',
	imdb_link TEXT NOT NULL DEFAULT '',
	num_votes INTEGER NOT NULL DEFAULT 0,
	similar   TEXT NOT NULL DEFAULT ''
)`

const selectColumns = `id, title, genres, keywords, directors, actors, year, duration, rating, plot, imdb_link, num_votes, similar`

// similar titles are joined with a separator that cannot appear in a title list
const similarSep = "|"

type movieRow struct {
	ID        string  `db:"id"`
	Title     string  `db:"title"`
	Genres    string  `db:"genres"`
	Keywords  string  `db:"keywords"`
	Directors string  `db:"directors"`
	Actors    string  `db:"actors"`
	Year      int     `db:"year"`
	Duration  int     `db:"duration"`
	Rating    float64 `db:"rating"`
	Plot      string  `db:"plot"`
	ImdbLink  string  `db:"imdb_link"`
	NumVotes  int     `db:"num_votes"`
	Similar   string  `db:"similar"`
}

func rowFromItem(item types.Item) movieRow {
	year, _ := strconv.Atoi(item.Get(types.SlotYear))
	duration, _ := strconv.Atoi(item.Get(types.SlotDuration))
	return movieRow{
		ID:        item.ID,
		Title:     item.Title(),
		Genres:    item.Get(types.SlotGenres),
		Keywords:  item.Get(types.SlotKeywords),
		Directors: item.Get(types.SlotDirectors),
		Actors:    item.Get(types.SlotActors),
		Year:      year,
		Duration:  duration,
		Rating:    rating(item),
		Plot:      item.Get(types.SlotPlot),
		ImdbLink:  item.Get(types.SlotImdbLink),
		NumVotes:  item.Votes,
		Similar:   strings.Join(item.Similar, similarSep),
	}
}

func (r movieRow) item() types.Item {
	rec := record{
		ID: r.ID, Title: r.Title, Genres: r.Genres, Keywords: r.Keywords,
		Directors: r.Directors, Actors: r.Actors, Year: r.Year, Duration: r.Duration,
		Rating: r.Rating, Plot: r.Plot, ImdbLink: r.ImdbLink, Votes: r.NumVotes,
	}
	if r.Similar != "" {
		rec.Similar = strings.Split(r.Similar, similarSep)
	}
	return rec.item()
}

// SQL renders the query for the given bind type (sqlx.QUESTION,
// sqlx.DOLLAR...).
func (q Query) SQL(bindType int) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	if q.Similar() {
		clause, inArgs, err := sqlx.In("LOWER(title) IN (?)", q.SimilarTitles)
		if err != nil {
			return "", nil, fmt.Errorf("expand similar titles: %w", err)
		}
		where = append(where, clause)
		args = append(args, inArgs...)
	} else {
		if q.MinVotes > 0 {
			where = append(where, "num_votes >= ?")
			args = append(args, q.MinVotes)
		}
		for _, f := range q.Filters {
			clause, fargs, err := f.sql()
			if err != nil {
				return "", nil, err
			}
			where = append(where, clause)
			args = append(args, fargs...)
		}
	}
	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM movies")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY rating DESC, num_votes DESC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sqlx.Rebind(bindType, b.String()), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (f Filter) sql() (string, []any, error) {
	col, ok := columns[f.Slot]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", types.ErrUnknownSlot, f.Slot)
	}
	if f.Slot == types.SlotYear {
		// year 0 is a missing year and fails every year filter
		switch f.Op {
		case types.OpBetween:
			return "(year > 0 AND year >= ? AND year < ?)", []any{f.Low, f.High}, nil
		case types.OpNot:
			return "(year > 0 AND (year < ? OR year >= ?))", []any{f.Low, f.High}, nil
		case types.OpNE:
			return "(year > 0 AND year <> ?)", []any{f.Low}, nil
		case types.OpEQ, types.OpLT, types.OpLE, types.OpGT, types.OpGE:
			return "(year > 0 AND year " + f.Op.Symbol() + " ?)", []any{f.Low}, nil
		}
		return "", nil, fmt.Errorf("%w: %s on year", types.ErrUnknownOperator, f.Op)
	}
	pattern := "%" + likeEscaper.Replace(f.Text) + "%"
	if f.Op == types.OpNE {
		return "LOWER(" + col + `) NOT LIKE ? ESCAPE '\'`, []any{pattern}, nil
	}
	return "LOWER(" + col + `) LIKE ? ESCAPE '\'`, []any{pattern}, nil
}

// SQLStore serves lookups from a "movies" table in SQLite or Postgres.
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// OpenSQL connects with driver "sqlite" or "postgres".
func OpenSQL(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// in-memory databases are per connection
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db, logger), nil
}

func NewSQLStore(db *sqlx.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, logger: logger.Named("catalog.sql")}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create movies table: %w", err)
	}
	return nil
}

// Insert adds items, skipping ids that already exist. Missing similarity
// lists are ranked within the inserted batch.
func (s *SQLStore) Insert(ctx context.Context, items []types.Item) error {
	items = slices.Clone(items)
	RankSimilar(items, similarPerItem)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	const stmt = `INSERT INTO movies (` + selectColumns + `) VALUES
	(:id, :title, :genres, :keywords, :directors, :actors, :year, :duration, :rating, :plot, :imdb_link, :num_votes, :similar)
	ON CONFLICT (id) DO NOTHING`
	for _, item := range items {
		if _, err := tx.NamedExecContext(ctx, stmt, rowFromItem(item)); err != nil {
			return fmt.Errorf("insert %s: %w", item.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	s.logger.Debug("Inserted items", zap.Int("count", len(items)))
	return nil
}

func (s *SQLStore) Lookup(ctx context.Context, q Query) ([]types.Item, error) {
	query, args, err := q.SQL(sqlx.BindType(s.db.DriverName()))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Running lookup", zap.String("sql", query), zap.Int("args", len(args)))
	var rows []movieRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	items := make([]types.Item, len(rows))
	for i, r := range rows {
		items[i] = r.item()
	}
	return items, nil
}

func (s *SQLStore) Values(ctx context.Context, slot types.Slot) ([]string, error) {
	col, ok := columns[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownSlot, slot)
	}
	var raw []string
	query := "SELECT DISTINCT CAST(" + col + " AS TEXT) FROM movies"
	if err := s.db.SelectContext(ctx, &raw, query); err != nil {
		return nil, fmt.Errorf("values of %s: %w", slot, err)
	}
	items := make([]types.Item, len(raw))
	for i, v := range raw {
		items[i] = types.Item{Attributes: map[types.Slot]string{slot: v}}
	}
	return literalValues(items, slot, isListSlot(slot)), nil
}
