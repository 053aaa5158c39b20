package repository

import (
	"context"
	"errors"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type problemRepository struct {
	db *mongo.Database
}

func NewProblemRepository(db *mongo.Database) domain.ProblemRepository {
	return &problemRepository{
		db: db,
	}
}

func (r *problemRepository) GetByID(ctx context.Context, id string) (*domain.Problem, error) {
	var problem domain.Problem
	err := r.db.Collection(db.ProblemsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&problem)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrProblemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &problem, nil
}
