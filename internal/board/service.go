package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/codequest/backend-go/internal/auth"
	"github.com/codequest/backend-go/internal/db/dbgen"
	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/typeid"
)

var (
	ErrNotFound    = errors.New("board not found")
	ErrForbidden   = errors.New("forbidden")
	ErrLiveSession = errors.New("board has a live session")
)

const (
	saveAttempts    = 3
	uniqueViolation = "23505"
)

// Repository is the persistence the service needs. *dbgen.Queries implements it.
type Repository interface {
	CreateBoard(ctx context.Context, arg dbgen.CreateBoardParams) (dbgen.Board, error)
	GetBoard(ctx context.Context, id string) (dbgen.Board, error)
	ListBoards(ctx context.Context) ([]dbgen.Board, error)
	DeleteBoard(ctx context.Context, id string) (int64, error)
	CreateSnapshot(ctx context.Context, arg dbgen.CreateSnapshotParams) (dbgen.Snapshot, error)
	GetLatestSnapshot(ctx context.Context, boardID string) (dbgen.Snapshot, error)
}

type TokenIssuer interface {
	IssuePair(boardID string) (*auth.TokenPair, error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
}

func NewService(repo Repository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Created is returned once, when a board is created: the tokens are not stored.
type Created struct {
	Board
	auth.TokenPair
}

type Snapshot struct {
	Version   int                 `json:"version"`
	Canvas    document.CanvasData `json:"canvas"`
	CreatedAt string              `json:"createdAt"`
}

// Create stores a new board seeded with initial, or an empty canvas when nil.
func (s *Service) Create(ctx context.Context, name string, initial *document.CanvasData) (*Created, error) {
	boardID := typeid.NewBoardID()

	dbBoard, err := s.repo.CreateBoard(ctx, dbgen.CreateBoardParams{
		ID:   boardID,
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	seed := document.NewCanvasData(nil)
	if initial != nil {
		seed = document.NewCanvasData(initial.Elements)
	}
	if _, err := s.SaveCanvas(ctx, boardID, seed); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	tokens, err := s.tokens.IssuePair(boardID)
	if err != nil {
		return nil, err
	}

	return &Created{Board: *dbBoardToBoard(dbBoard), TokenPair: *tokens}, nil
}

func (s *Service) Get(ctx context.Context, boardID string) (*Board, error) {
	dbBoard, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}

	return dbBoardToBoard(dbBoard), nil
}

func (s *Service) List(ctx context.Context) ([]Board, error) {
	dbBoards, err := s.repo.ListBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	boards := make([]Board, len(dbBoards))
	for i, b := range dbBoards {
		boards[i] = *dbBoardToBoard(b)
	}

	return boards, nil
}

func (s *Service) Delete(ctx context.Context, boardID string, access auth.Access) error {
	if !access.CanEdit() {
		return ErrForbidden
	}

	n, err := s.repo.DeleteBoard(ctx, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestSnapshot returns the most recently saved canvas of a board.
func (s *Service) LatestSnapshot(ctx context.Context, boardID string) (*Snapshot, error) {
	snap, err := s.repo.GetLatestSnapshot(ctx, boardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	canvas, err := document.Decode(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}

	return &Snapshot{
		Version:   int(snap.Version),
		Canvas:    canvas,
		CreatedAt: snap.CreatedAt.Time.Format(time.RFC3339),
	}, nil
}

// LoadCanvas returns the latest canvas of a board.
func (s *Service) LoadCanvas(ctx context.Context, boardID string) (*document.CanvasData, error) {
	snap, err := s.LatestSnapshot(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return &snap.Canvas, nil
}

// SaveCanvas appends a snapshot and returns its version. Versions are
// allocated in SQL, so a concurrent save of the same board can collide on the
// unique version; the insert is retried with the next version.
func (s *Service) SaveCanvas(ctx context.Context, boardID string, data document.CanvasData) (int, error) {
	docJSON, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("marshal canvas: %w", err)
	}

	for attempt := 1; ; attempt++ {
		snap, err := s.repo.CreateSnapshot(ctx, dbgen.CreateSnapshotParams{
			ID:       typeid.NewSnapshotID(),
			BoardID:  boardID,
			Document: docJSON,
		})
		if err == nil {
			return int(snap.Version), nil
		}
		if !isUniqueViolation(err) || attempt == saveAttempts {
			return 0, fmt.Errorf("create snapshot: %w", err)
		}
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func dbBoardToBoard(b dbgen.Board) *Board {
	return &Board{
		ID:        b.ID,
		Name:      b.Name,
		CreatedAt: b.CreatedAt.Time.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: b.UpdatedAt.Time.Format("2006-01-02T15:04:05Z"),
	}
}
