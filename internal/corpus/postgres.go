package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
	"github.com/newa-nlp/newasearch/pkg/postgres"
)

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore reads documents from a PostgreSQL table with id and content
// columns, ordered by id for a stable record order.
type PostgresStore struct {
	client     *postgres.Client
	table      string
	idCol      string
	contentCol string
}

// NewPostgresStore validates the identifiers and returns a store backed by
// the given client. Empty column names fall back to the CSV defaults.
func NewPostgresStore(client *postgres.Client, table, idColumn, contentColumn string) (*PostgresStore, error) {
	if table == "" {
		table = "documents"
	}
	if idColumn == "" {
		idColumn = DefaultIDColumn
	}
	if contentColumn == "" {
		contentColumn = DefaultContentColumn
	}
	for _, ident := range []string{table, idColumn, contentColumn} {
		if !identRe.MatchString(ident) {
			return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "invalid SQL identifier %q", ident)
		}
	}
	return &PostgresStore{
		client:     client,
		table:      table,
		idCol:      idColumn,
		contentCol: contentColumn,
	}, nil
}

// ForEach streams documents ordered by id.
func (s *PostgresStore) ForEach(ctx context.Context, fn func(Document) error) error {
	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s", s.idCol, s.contentCol, s.table, s.idCol)
	rows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying corpus table %s: %w", s.table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Content); err != nil {
			return fmt.Errorf("scanning corpus row: %w", err)
		}
		if err := fn(doc); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}
	return rows.Err()
}

// Content looks up a single document by id.
func (s *PostgresStore) Content(ctx context.Context, docID string) (string, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", s.contentCol, s.table, s.idCol)
	var content string
	err := s.client.DB.QueryRowContext(ctx, query, docID).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying document %s: %w", docID, err)
	}
	return content, true, nil
}

// Count returns the number of documents in the table.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)
	var n int
	if err := s.client.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting corpus rows: %w", err)
	}
	return n, nil
}
