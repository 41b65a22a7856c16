// Package sragdb — хранилище датасета SRAG в локальном SQLite.
//
// Выгрузки DataSus идемпотентно загружаются в таблицу data_sus:
// уникальный индекс по всем колонкам + ON CONFLICT DO NOTHING позволяют
// перезапускать загрузку без дубликатов.
package sragdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

// Store — потокобезопасное хранилище записей SRAG.
type Store struct {
	db *sql.DB
	mu sync.Mutex // сериализует записи, чтения идут без блокировки
}

// Open открывает (или создаёт) базу по пути и инициализирует схему.
//
// Путь ":memory:" создаёт БД в памяти — используется в тестах.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS data_sus (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			year INTEGER NOT NULL,
			sg_uf_not TEXT NOT NULL,
			dt_notific TEXT NOT NULL,
			sem_not INTEGER NOT NULL,
			evolucao INTEGER NOT NULL,
			uti INTEGER NOT NULL,
			vacina_cov INTEGER NOT NULL,
			hospital INTEGER NOT NULL,
			UNIQUE(year, sg_uf_not, dt_notific, sem_not, evolucao, uti, vacina_cov, hospital)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_data_sus_year ON data_sus(year)`,
		`CREATE INDEX IF NOT EXISTS idx_data_sus_state ON data_sus(sg_uf_not, year)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close закрывает соединение с базой.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertBatch загружает пачку записей в одной транзакции.
//
// Дубликаты молча пропускаются (ON CONFLICT DO NOTHING).
// Возвращает количество реально вставленных строк.
func (s *Store) InsertBatch(ctx context.Context, records []srag.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO data_sus (year, sg_uf_not, dt_notific, sem_not, evolucao, uti, vacina_cov, hospital)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx,
			rec.Year,
			rec.State,
			rec.Notified.UTC().Format(srag.DateLayout),
			rec.Week,
			rec.Evolution,
			rec.ICU,
			rec.Vaccinated,
			rec.Hospitalized,
		)
		if err != nil {
			return 0, fmt.Errorf("insert record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// LoadYears возвращает записи указанных годов.
//
// Пустой срез годов — все записи.
func (s *Store) LoadYears(ctx context.Context, years []int) ([]srag.Record, error) {
	q := `
		SELECT year, sg_uf_not, dt_notific, sem_not, evolucao, uti, vacina_cov, hospital
		FROM data_sus
	`
	args := []any{}
	if len(years) > 0 {
		q += ` WHERE year IN (` + placeholders(len(years)) + `)`
		for _, y := range years {
			args = append(args, y)
		}
	}
	q += ` ORDER BY dt_notific ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LoadAll возвращает все записи хранилища.
func (s *Store) LoadAll(ctx context.Context) ([]srag.Record, error) {
	return s.LoadYears(ctx, nil)
}

// StoredYears возвращает годы, по которым в базе есть данные.
func (s *Store) StoredYears(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT year FROM data_sus ORDER BY year ASC`)
	if err != nil {
		return nil, fmt.Errorf("query years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate years: %w", err)
	}
	return years, nil
}

// CountByYear возвращает количество записей по каждому году.
func (s *Store) CountByYear(ctx context.Context) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year, COUNT(*) FROM data_sus GROUP BY year`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var year, n int
		if err := rows.Scan(&year, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[year] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// Count возвращает общее количество записей.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM data_sus`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]srag.Record, error) {
	records := make([]srag.Record, 0)
	for rows.Next() {
		var rec srag.Record
		var date string
		if err := rows.Scan(
			&rec.Year,
			&rec.State,
			&date,
			&rec.Week,
			&rec.Evolution,
			&rec.ICU,
			&rec.Vaccinated,
			&rec.Hospitalized,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		t, err := time.Parse(srag.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse dt_notific '%s': %w", date, err)
		}
		rec.Notified = t
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ",")
}
