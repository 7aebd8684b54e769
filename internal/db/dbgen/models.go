package dbgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Board struct {
	ID        string
	Name      string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type Snapshot struct {
	ID        string
	BoardID   string
	Version   int32
	Document  []byte
	CreatedAt pgtype.Timestamptz
}
