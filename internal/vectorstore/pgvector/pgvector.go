package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docrag/internal/domain"
)

var _ domain.VectorIndex = (*Storage)(nil)

var errNoDSN = errors.New("postgres dsn is empty")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ChunkRow is the persisted shape of a chunk. The embedding column is
// declared with the dimension passed to Init.
type ChunkRow struct {
	ID         uint            `gorm:"primaryKey"`
	DocID      string          `gorm:"type:text;not null;index"`
	ChunkIndex int             `gorm:"not null"`
	Content    string          `gorm:"type:text"`
	Metadata   datatypes.JSON  `gorm:"type:jsonb"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
}

// Storage persists chunks in a Postgres table with the vector extension.
type Storage struct {
	db          *gorm.DB
	table       string
	autoMigrate bool
	batchSize   int
}

// Open connects to Postgres. table must be a plain SQL identifier.
func Open(dsn, table string, autoMigrate bool) (*Storage, error) {
	if dsn == "" {
		return nil, errNoDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewStorage(db, table, autoMigrate)
}

// NewStorage wraps an existing connection.
func NewStorage(db *gorm.DB, table string, autoMigrate bool) (*Storage, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidConfig, table)
	}
	return &Storage{db: db, table: table, autoMigrate: autoMigrate, batchSize: 500}, nil
}

// Init creates the extension and table when auto-migration is on, then
// compares the embedding column's declared dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	db := s.db.WithContext(ctx)
	if s.autoMigrate {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("create extension: %w", err)
		}
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id bigserial PRIMARY KEY,
	doc_id text NOT NULL,
	chunk_index integer NOT NULL,
	content text,
	metadata jsonb,
	embedding vector(%d),
	UNIQUE (doc_id, chunk_index)
)`, s.table, dimension)
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("create table %s: %w", s.table, err)
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_doc_id_idx ON %s (doc_id)", s.table, s.table)
		if err := db.Exec(idx).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	// atttypmod holds the declared dimension of a vector column.
	var declared int
	err := db.Raw(
		"SELECT atttypmod FROM pg_attribute WHERE attrelid = to_regclass(?) AND attname = 'embedding'",
		s.table,
	).Scan(&declared).Error
	if err != nil {
		return fmt.Errorf("inspect %s: %w", s.table, err)
	}
	if declared == 0 {
		return fmt.Errorf("table %s not found; enable auto_migrate or create it", s.table)
	}
	if declared > 0 && declared != dimension {
		return fmt.Errorf("%w: table %s has vector(%d), embedder produces %d",
			domain.ErrDimensionMismatch, s.table, declared, dimension)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, docID string) error {
	return s.db.WithContext(ctx).Table(s.table).Where("doc_id = ?", docID).Delete(&ChunkRow{}).Error
}

func (s *Storage) Insert(ctx context.Context, rows []domain.Chunk) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]ChunkRow, len(rows))
	for i, r := range rows {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return err
		}
		models[i] = ChunkRow{
			DocID:      r.DocID,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Metadata:   datatypes.JSON(md),
			Embedding:  pgvector.NewVector(r.Embedding),
		}
	}
	return s.db.WithContext(ctx).Table(s.table).CreateInBatches(models, s.batchSize).Error
}

type scoredRow struct {
	DocID      string
	ChunkIndex int
	Content    string
	Metadata   datatypes.JSON
	Similarity float64
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	query := pgvector.NewVector(vector)
	q := s.db.WithContext(ctx).
		Table(s.table).
		Select("doc_id, chunk_index, content, metadata, 1 - (embedding <=> ?) AS similarity", query)
	if filter.DocID != "" {
		q = q.Where("doc_id = ?", filter.DocID)
	}
	if contains := containment(filter); contains != nil {
		q = q.Where("metadata @> ?", contains)
	}
	var rows []scoredRow
	err := q.Order(gorm.Expr("embedding <=> ?", query)).Limit(topK).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(rows))
	for _, r := range rows {
		var md domain.Metadata
		if len(r.Metadata) > 0 {
			if err := json.Unmarshal(r.Metadata, &md); err != nil {
				return nil, fmt.Errorf("decode metadata of %s/%d: %w", r.DocID, r.ChunkIndex, err)
			}
		}
		results = append(results, domain.SearchResult{
			DocID:      r.DocID,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Metadata:   md,
			Similarity: domain.Float64(r.Similarity),
		})
	}
	return results, nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// containment builds the jsonb document used with @> for metadata filters.
func containment(f domain.Filter) datatypes.JSON {
	m := map[string]any{}
	if f.Source != "" {
		m["source"] = f.Source
	}
	if f.Page != 0 {
		m["page"] = f.Page
	}
	if len(m) == 0 {
		return nil
	}
	data, _ := json.Marshal(m)
	return datatypes.JSON(data)
}
