package dbgen

import (
	"context"
)

const createBoard = `-- name: CreateBoard :one
INSERT INTO boards (id, name) VALUES ($1, $2)
RETURNING id, name, created_at, updated_at
`

type CreateBoardParams struct {
	ID   string
	Name string
}

func (q *Queries) CreateBoard(ctx context.Context, arg CreateBoardParams) (Board, error) {
	row := q.db.QueryRow(ctx, createBoard, arg.ID, arg.Name)
	var i Board
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getBoard = `-- name: GetBoard :one
SELECT id, name, created_at, updated_at FROM boards WHERE id = $1
`

func (q *Queries) GetBoard(ctx context.Context, id string) (Board, error) {
	row := q.db.QueryRow(ctx, getBoard, id)
	var i Board
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listBoards = `-- name: ListBoards :many
SELECT id, name, created_at, updated_at FROM boards ORDER BY updated_at DESC
`

func (q *Queries) ListBoards(ctx context.Context) ([]Board, error) {
	rows, err := q.db.Query(ctx, listBoards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Board
	for rows.Next() {
		var i Board
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteBoard = `-- name: DeleteBoard :execrows
DELETE FROM boards WHERE id = $1
`

func (q *Queries) DeleteBoard(ctx context.Context, id string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteBoard, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createSnapshot = `-- name: CreateSnapshot :one
WITH next AS (
    SELECT COALESCE(MAX(version), 0) + 1 AS version FROM snapshots WHERE board_id = $2
), touched AS (
    UPDATE boards SET updated_at = now() WHERE id = $2
)
INSERT INTO snapshots (id, board_id, version, document)
SELECT $1::text, $2::text, next.version, $3::jsonb FROM next
RETURNING id, board_id, version, document, created_at
`

type CreateSnapshotParams struct {
	ID       string
	BoardID  string
	Document []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	row := q.db.QueryRow(ctx, createSnapshot, arg.ID, arg.BoardID, arg.Document)
	var i Snapshot
	err := row.Scan(
		&i.ID,
		&i.BoardID,
		&i.Version,
		&i.Document,
		&i.CreatedAt,
	)
	return i, err
}

const getLatestSnapshot = `-- name: GetLatestSnapshot :one
SELECT id, board_id, version, document, created_at FROM snapshots
WHERE board_id = $1
ORDER BY version DESC
LIMIT 1
`

func (q *Queries) GetLatestSnapshot(ctx context.Context, boardID string) (Snapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot, boardID)
	var i Snapshot
	err := row.Scan(
		&i.ID,
		&i.BoardID,
		&i.Version,
		&i.Document,
		&i.CreatedAt,
	)
	return i, err
}
