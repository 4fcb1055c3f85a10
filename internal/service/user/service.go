package user

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

type Service interface {
	Create(ctx context.Context, req *model.CreateUserRequest) *model.OperationResponse
	Get(ctx context.Context, id string) *model.OperationResponse
	ListActive(ctx context.Context) *model.OperationResponse
	Update(ctx context.Context, id string, req *model.UpdateUserRequest) *model.OperationResponse
	Delete(ctx context.Context, id string) *model.OperationResponse
	SetActive(ctx context.Context, id string, active bool) *model.OperationResponse
	AddPreference(ctx context.Context, id, channel string) *model.OperationResponse
	RemovePreference(ctx context.Context, id, channel string) *model.OperationResponse
}

type service struct {
	repo  repository.UserRepository
	cache *cache.Cache
}

func NewService(repo repository.UserRepository) Service {
	return &service{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

func (s *service) Create(ctx context.Context, req *model.CreateUserRequest) *model.OperationResponse {
	user, err := model.NewUser(model.NewUserID(), req.Name, req.Email, req.Phone, req.ChatID)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	for _, pref := range req.Preferences {
		if _, err := model.ParseChannel(pref); err != nil {
			return model.NewErrorResponse("Invalid input data", err.Error())
		}
		user.AddPreference(pref)
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return model.NewErrorResponse("Failed to create user", err.Error())
	}
	s.cache.Set(user.ID.String(), user, cache.DefaultExpiration)
	return model.NewSuccessResponse("User created", user)
}

func (s *service) Get(ctx context.Context, id string) *model.OperationResponse {
	user, err := s.load(ctx, id)
	if err != nil {
		return errorResponse("get user", err)
	}
	return model.NewSuccessResponse("User found", user)
}

func (s *service) ListActive(ctx context.Context) *model.OperationResponse {
	users, err := s.repo.ListActive(ctx)
	if err != nil {
		return model.NewErrorResponse("Failed to list users", err.Error())
	}
	return model.NewSuccessResponse("Active users", users)
}

func (s *service) Update(ctx context.Context, id string, req *model.UpdateUserRequest) *model.OperationResponse {
	user, err := s.load(ctx, id)
	if err != nil {
		return errorResponse("update user", err)
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		if err := user.UpdateEmail(*req.Email); err != nil {
			return model.NewErrorResponse("Invalid input data", err.Error())
		}
	}
	if req.Phone != nil {
		if err := user.UpdatePhone(*req.Phone); err != nil {
			return model.NewErrorResponse("Invalid input data", err.Error())
		}
	}
	if req.ChatID != nil {
		if err := user.UpdateChatID(*req.ChatID); err != nil {
			return model.NewErrorResponse("Invalid input data", err.Error())
		}
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return model.NewErrorResponse("Failed to update user", err.Error())
	}
	s.cache.Set(user.ID.String(), user, cache.DefaultExpiration)
	return model.NewSuccessResponse("User updated", user)
}

func (s *service) Delete(ctx context.Context, id string) *model.OperationResponse {
	userID, err := model.ParseUserID(id)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return errorResponse("delete user", err)
	}
	s.cache.Delete(userID.String())
	return model.NewSuccessResponse("User deleted", nil)
}

func (s *service) SetActive(ctx context.Context, id string, active bool) *model.OperationResponse {
	user, err := s.load(ctx, id)
	if err != nil {
		return errorResponse("update user", err)
	}
	if active {
		user.Activate()
	} else {
		user.Deactivate()
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return model.NewErrorResponse("Failed to update user", err.Error())
	}
	s.cache.Set(user.ID.String(), user, cache.DefaultExpiration)
	return model.NewSuccessResponse("User updated", user)
}

func (s *service) AddPreference(ctx context.Context, id, channel string) *model.OperationResponse {
	user, err := s.load(ctx, id)
	if err != nil {
		return errorResponse("update user", err)
	}
	if _, err := model.ParseChannel(channel); err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	user.AddPreference(channel)
	if err := s.repo.Save(ctx, user); err != nil {
		return model.NewErrorResponse("Failed to update user", err.Error())
	}
	s.cache.Set(user.ID.String(), user, cache.DefaultExpiration)
	return model.NewSuccessResponse("Preference added", user)
}

func (s *service) RemovePreference(ctx context.Context, id, channel string) *model.OperationResponse {
	user, err := s.load(ctx, id)
	if err != nil {
		return errorResponse("update user", err)
	}
	user.RemovePreference(channel)
	if err := s.repo.Save(ctx, user); err != nil {
		return model.NewErrorResponse("Failed to update user", err.Error())
	}
	s.cache.Set(user.ID.String(), user, cache.DefaultExpiration)
	return model.NewSuccessResponse("Preference removed", user)
}

// load resolves a user by raw id, consulting the read cache first.
func (s *service) load(ctx context.Context, id string) (*model.User, error) {
	userID, err := model.ParseUserID(id)
	if err != nil {
		return nil, apperrors.BadRequest("invalid user ID", err)
	}
	if cached, ok := s.cache.Get(userID.String()); ok {
		if user, ok := cached.(*model.User); ok {
			return user, nil
		}
	}
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(userID.String(), user, cache.DefaultExpiration)
	return user, nil
}

func errorResponse(op string, err error) *model.OperationResponse {
	switch {
	case apperrors.IsCode(err, apperrors.ErrNotFound):
		return model.NewErrorResponse("User not found", "user with given ID does not exist")
	case apperrors.IsCode(err, apperrors.ErrBadRequest):
		return model.NewErrorResponse("Invalid input data", err.Error())
	default:
		return model.NewErrorResponse(fmt.Sprintf("Failed to %s", op), err.Error())
	}
}
