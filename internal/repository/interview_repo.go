package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"prepwise/internal/domain"
)

// ErrUnknownReference se devuelve cuando la entrevista apunta a un usuario inexistente.
var ErrUnknownReference = errors.New("unknown referenced row")

const pgForeignKeyViolation = "23503"

type InterviewRepository interface {
	Create(ctx context.Context, interview domain.Interview) error
	GetByID(ctx context.Context, id string) (domain.Interview, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Interview, error)
}

type PgInterviewRepository struct {
	pool *pgxpool.Pool
}

func NewPgInterviewRepository(pool *pgxpool.Pool) *PgInterviewRepository {
	return &PgInterviewRepository{pool: pool}
}

func (r *PgInterviewRepository) Create(ctx context.Context, interview domain.Interview) error {
	const query = `
		INSERT INTO interviews (id, role, type, level, techstack, questions, user_id, finalized, cover_image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		interview.ID,
		interview.Role,
		interview.Type,
		interview.Level,
		interview.Techstack,
		interview.Questions,
		interview.UserID,
		interview.Finalized,
		interview.CoverImage,
		interview.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrUnknownReference
	}
	return err
}

func (r *PgInterviewRepository) GetByID(ctx context.Context, id string) (domain.Interview, error) {
	const query = `
		SELECT id, role, type, level, techstack, questions, user_id, finalized, cover_image, created_at
		FROM interviews
		WHERE id = $1
	`
	return scanInterview(r.pool.QueryRow(ctx, query, id))
}

func (r *PgInterviewRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Interview, error) {
	const query = `
		SELECT id, role, type, level, techstack, questions, user_id, finalized, cover_image, created_at
		FROM interviews
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	interviews := make([]domain.Interview, 0)
	for rows.Next() {
		interview, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, interview)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return interviews, nil
}

func scanInterview(row pgx.Row) (domain.Interview, error) {
	var iv domain.Interview
	err := row.Scan(
		&iv.ID,
		&iv.Role,
		&iv.Type,
		&iv.Level,
		&iv.Techstack,
		&iv.Questions,
		&iv.UserID,
		&iv.Finalized,
		&iv.CoverImage,
		&iv.CreatedAt,
	)
	if err != nil {
		return domain.Interview{}, err
	}
	return iv, nil
}
