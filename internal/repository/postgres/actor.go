package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
)

var actorColumns = []string{
	"id", "email", "name", "role", "status", "linked_resource_id", "created_at", "updated_at",
}

type actorRepository struct {
	BaseRepository
}

func NewActorRepository(db *sqlx.DB) repository.ActorRepository {
	return &actorRepository{NewBaseRepository(db)}
}

func (r *actorRepository) Create(ctx context.Context, actor *model.Actor, cred *model.Credential) error {
	return translate(r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO actors (
				id, email, name, role, status, linked_resource_id, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			actor.ID,
			actor.Email,
			actor.Name,
			actor.Role,
			actor.Status,
			actor.LinkedResourceID,
			actor.CreatedAt,
			actor.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if cred == nil {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO credentials (actor_id, password_hash, updated_at)
			VALUES ($1, $2, $3)
		`, cred.ActorID, cred.PasswordHash, cred.UpdatedAt)
		return err
	}))
}

func (r *actorRepository) Get(ctx context.Context, id string) (*model.Actor, error) {
	query, args, err := psql.Select(actorColumns...).From("actors").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var actor model.Actor
	if err := r.db.GetContext(ctx, &actor, query, args...); err != nil {
		return nil, translate(err)
	}
	return &actor, nil
}

func (r *actorRepository) GetByEmail(ctx context.Context, email string) (*model.Actor, error) {
	query, args, err := psql.Select(actorColumns...).
		From("actors").
		Where(sq.Expr("LOWER(email) = ?", strings.ToLower(email))).
		ToSql()
	if err != nil {
		return nil, err
	}

	var actor model.Actor
	if err := r.db.GetContext(ctx, &actor, query, args...); err != nil {
		return nil, translate(err)
	}
	return &actor, nil
}

func (r *actorRepository) GetCredential(ctx context.Context, actorID string) (*model.Credential, error) {
	var cred model.Credential
	err := r.db.GetContext(ctx, &cred, `
		SELECT actor_id, password_hash, updated_at
		FROM credentials
		WHERE actor_id = $1
	`, actorID)
	if err != nil {
		return nil, translate(err)
	}
	return &cred, nil
}

// Update writes the mutable fields only; email and created_at are fixed.
func (r *actorRepository) Update(ctx context.Context, actor *model.Actor) error {
	query, args, err := buildActorUpdateQuery(actor)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update actor: %w", err)
	}
	return requireAffected(res)
}

// updated_at comes from the caller so the stored row matches the actor
// the service returns.
func buildActorUpdateQuery(actor *model.Actor) (string, []interface{}, error) {
	return psql.Update("actors").
		Set("name", actor.Name).
		Set("role", actor.Role).
		Set("status", actor.Status).
		Set("linked_resource_id", actor.LinkedResourceID).
		Set("updated_at", actor.UpdatedAt).
		Where(sq.Eq{"id": actor.ID}).
		ToSql()
}

func (r *actorRepository) List(ctx context.Context, filter model.ActorFilter) ([]*model.Actor, error) {
	q := psql.Select(actorColumns...).From("actors").OrderBy("name ASC")
	if filter.Role != "" {
		q = q.Where(sq.Eq{"role": filter.Role})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	actors := []*model.Actor{}
	if err := r.db.SelectContext(ctx, &actors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	return actors, nil
}
