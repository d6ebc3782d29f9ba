package csql

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Document is a stored JSON document
type Document struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Properties json.RawMessage
}

// Query selects one page of documents.
//
// Where is a boolean fragment with '?' placeholders for Args, as produced by
// filter.Positional. It is used unchanged for the page and for the total count.
// OrderBy is an SQL expression and must not contain user input, an empty
// OrderBy orders by timestamp.
type Query struct {
	Where     string
	Args      []any
	Skip      int
	Limit     int
	OrderBy   string
	Ascending bool
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (db *DB) table(resource string) (string, error) {
	if !ValidIdentifier(resource) {
		return "", fmt.Errorf("invalid collection name '%s'", resource)
	}
	return db.Schema + `."` + resource + `"`, nil
}

func idColumn(resource string) string {
	return resource + "_id"
}

// CreateCollection creates the document table for resource if it does not exist yet
func (db *DB) CreateCollection(ctx context.Context, resource string) error {
	table, err := db.table(resource)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
%[2]s uuid PRIMARY KEY,
timestamp timestamp NOT NULL DEFAULT now(),
properties jsonb NOT NULL
);
CREATE INDEX IF NOT EXISTS sort_index_%[3]s_timestamp ON %[1]s(timestamp);`,
		table, idColumn(resource), resource))
	if err != nil {
		return fmt.Errorf("cannot create collection %s: %w", resource, err)
	}
	return nil
}

// Insert stores a new document
func (db *DB) Insert(ctx context.Context, resource string, doc Document) error {
	table, err := db.table(resource)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert(table).
		Columns(idColumn(resource), "timestamp", "properties").
		Values(doc.ID, doc.Timestamp.UTC(), string(doc.Properties)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

// Read returns the document with the given id, or ErrNoRows
func (db *DB) Read(ctx context.Context, resource string, id uuid.UUID) (Document, error) {
	table, err := db.table(resource)
	if err != nil {
		return Document{}, err
	}
	query, args, err := psql.Select(idColumn(resource), "timestamp", "properties").
		From(table).
		Where(sq.Eq{idColumn(resource): id}).
		ToSql()
	if err != nil {
		return Document{}, err
	}
	var doc Document
	var properties []byte
	err = db.QueryRowContext(ctx, query, args...).Scan(&doc.ID, &doc.Timestamp, &properties)
	if err != nil {
		return Document{}, err
	}
	doc.Properties = properties
	return doc, nil
}

// PageSQL returns the statement selecting one page of documents
func (db *DB) PageSQL(resource string, q Query) (string, []any, error) {
	table, err := db.table(resource)
	if err != nil {
		return "", nil, err
	}
	direction := " DESC"
	if q.Ascending {
		direction = " ASC"
	}
	order := q.OrderBy
	if order == "" {
		order = "timestamp"
	}
	b := psql.Select(idColumn(resource), "timestamp", "properties").
		From(table).
		Where(where(q)).
		OrderBy(order+direction, idColumn(resource)+direction).
		Offset(uint64(q.Skip))
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b.ToSql()
}

// CountSQL returns the statement counting all documents matching the query
func (db *DB) CountSQL(resource string, q Query) (string, []any, error) {
	table, err := db.table(resource)
	if err != nil {
		return "", nil, err
	}
	return psql.Select("count(*)").From(table).Where(where(q)).ToSql()
}

func where(q Query) sq.Sqlizer {
	if q.Where == "" {
		return sq.Expr("TRUE")
	}
	return sq.Expr("("+q.Where+")", q.Args...)
}

// List returns one page of documents and the total count of matching documents
func (db *DB) List(ctx context.Context, resource string, q Query) ([]Document, int, error) {
	query, args, err := db.PageSQL(resource, q)
	if err != nil {
		return nil, 0, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot execute query `%s`: %w", query, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		var properties []byte
		if err := rows.Scan(&doc.ID, &doc.Timestamp, &properties); err != nil {
			return nil, 0, fmt.Errorf("cannot scan values: %w", err)
		}
		doc.Properties = properties
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	query, args, err = db.CountSQL(resource, q)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("cannot execute query `%s`: %w", query, err)
	}
	return docs, total, nil
}
