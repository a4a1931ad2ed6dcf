package postgres

import (
	"context"
	"errors"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) domain.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	var department *string
	var year *int
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT id, email, name, role, department, year_of_study,
			is_lcit_student, student_verification_status, created_at, updated_at
		FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &department, &year,
		&u.IsLCITStudent, &u.StudentVerificationStatus, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user not found", err)
		}
		return nil, err
	}
	if department != nil {
		u.Department = *department
	}
	if year != nil {
		u.YearOfStudy = *year
	}
	return &u, nil
}
