// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koi-net/koinode/internal/protocol"
)

// PostgresCache is a Cache backed by a single "bundles" table, accessed
// through a pooled *pgxpool.Pool. Schema is versioned separately via
// RunMigrations so the node can bootstrap its own schema on first start.
type PostgresCache struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool against databaseURL and verifies it
// with a ping.
func Connect(ctx context.Context, databaseURL string) (*PostgresCache, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresCache{pool: pool}, nil
}

func (c *PostgresCache) Close() error {
	c.pool.Close()
	return nil
}

func (c *PostgresCache) Read(ctx context.Context, rid protocol.RID) (protocol.Bundle, bool, error) {
	var b protocol.Bundle
	var timestamp int64
	var digest string
	var contents []byte

	err := c.pool.QueryRow(ctx, `
		SELECT manifest->>'content_digest', (manifest->>'timestamp')::bigint, contents
		FROM bundles WHERE rid = $1
	`, string(rid)).Scan(&digest, &timestamp, &contents)
	if errors.Is(err, pgx.ErrNoRows) {
		return protocol.Bundle{}, false, nil
	}
	if err != nil {
		return protocol.Bundle{}, false, fmt.Errorf("read bundle: %w", err)
	}
	b.Manifest = protocol.Manifest{RID: rid, Timestamp: timestamp, ContentDigest: digest}
	b.Contents = contents
	return b, true, nil
}

func (c *PostgresCache) Write(ctx context.Context, bundle protocol.Bundle) error {
	manifestJSON := fmt.Sprintf(`{"rid":%q,"timestamp":%d,"content_digest":%q}`,
		bundle.Manifest.RID, bundle.Manifest.Timestamp, bundle.Manifest.ContentDigest)

	_, err := c.pool.Exec(ctx, `
		INSERT INTO bundles (rid, rid_type, manifest, contents, updated_at)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, now())
		ON CONFLICT (rid) DO UPDATE SET
			manifest = EXCLUDED.manifest,
			contents = EXCLUDED.contents,
			updated_at = now()
	`, string(bundle.Manifest.RID), bundle.Manifest.RID.Type(), manifestJSON, []byte(bundle.Contents))
	if err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

func (c *PostgresCache) Delete(ctx context.Context, rid protocol.RID) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM bundles WHERE rid = $1`, string(rid))
	if err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	return nil
}

func (c *PostgresCache) Exists(ctx context.Context, rid protocol.RID) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bundles WHERE rid = $1)`, string(rid)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check bundle exists: %w", err)
	}
	return exists, nil
}

func (c *PostgresCache) List(ctx context.Context, ridTypes []string) ([]protocol.RID, error) {
	var rows pgx.Rows
	var err error
	if len(ridTypes) == 0 {
		rows, err = c.pool.Query(ctx, `SELECT rid FROM bundles`)
	} else {
		rows, err = c.pool.Query(ctx, `SELECT rid FROM bundles WHERE rid_type = ANY($1)`, ridTypes)
	}
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var out []protocol.RID
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			return nil, fmt.Errorf("scan rid: %w", err)
		}
		out = append(out, protocol.RID(rid))
	}
	return out, rows.Err()
}
