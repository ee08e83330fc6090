package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Structs

// PostgresStore is a PostgreSQL backed implementation of
// Store. Records live in a single table keyed by record key
// with the payload stored as JSONB. Concurrency safety comes
// from the underlying connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Functions

// NewPostgresStore expects to be supplied with PostgreSQL
// connection information from the config file. It connects to
// the database, makes sure the records table exists and
// returns an initialized store.
func NewPostgresStore(ip string, port uint16, database string, user string, password string, useTLS bool) (*PostgresStore, error) {

	sslMode := "disable"
	if useTLS {
		sslMode = "require"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(user), url.QueryEscape(password), ip, port, database, sslMode)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "could not create connection pool to specified PostgreSQL database")
	}

	_, err = pool.Exec(context.Background(),
		`CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			payload JSONB NOT NULL
		)`)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "could not ensure records table exists")
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// Put stores the supplied payload under the supplied key,
// overwriting any previous payload.
func (s *PostgresStore) Put(key string, payload []byte) error {

	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO records (key, payload) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload`,
		key, payload)
	if err != nil {
		return errors.Wrapf(err, "could not upsert record '%s'", key)
	}

	return nil
}

// Get returns the payload stored under the supplied key or
// ErrNoRecord if the key is absent.
func (s *PostgresStore) Get(key string) ([]byte, error) {

	var payload []byte

	err := s.pool.QueryRow(context.Background(),
		`SELECT payload FROM records WHERE key = $1`, key).Scan(&payload)
	if err != nil {

		if err == pgx.ErrNoRows {
			return nil, ErrNoRecord
		}

		return nil, errors.Wrapf(err, "could not look up record '%s'", key)
	}

	return payload, nil
}

// Exists reports whether a record is stored under the
// supplied key.
func (s *PostgresStore) Exists(key string) (bool, error) {

	var found bool

	err := s.pool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM records WHERE key = $1)`, key).Scan(&found)
	if err != nil {
		return false, errors.Wrapf(err, "could not check existence of record '%s'", key)
	}

	return found, nil
}

// Count returns the number of stored records.
func (s *PostgresStore) Count() (int, error) {

	var count int

	err := s.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM records`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "could not count records")
	}

	return count, nil
}

// List returns all stored records ordered by key.
func (s *PostgresStore) List() ([]KeyedRecord, error) {

	rows, err := s.pool.Query(context.Background(),
		`SELECT key, payload FROM records ORDER BY key`)
	if err != nil {
		return nil, errors.Wrap(err, "could not list records")
	}
	defer rows.Close()

	var records []KeyedRecord

	for rows.Next() {

		var rec KeyedRecord

		if err := rows.Scan(&rec.Key, &rec.Payload); err != nil {
			return nil, errors.Wrap(err, "could not scan listed record")
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "could not finish listing records")
	}

	return records, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
