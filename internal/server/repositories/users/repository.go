package users

import (
	"context"

	"github.com/dmitrijs2005/finkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}
