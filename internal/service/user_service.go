package service

import (
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"
)

// UserService 超级管理员的账号管理
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) GetUsers(filter repository.UserFilter, page, limit int) ([]model.User, int64, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, util.NewValidationError("invalid role")
	}
	return s.UserRepo.List(filter, (page-1)*limit, limit)
}

func (s *UserService) GetUser(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		return nil, util.Normalize(err)
	}
	return user, nil
}

// DeleteUser 关联数据由外键级联删除；不能删除自己
func (s *UserService) DeleteUser(actorID, id uint) error {
	if actorID == id {
		return util.NewValidationError("You cannot delete your own account")
	}
	return util.Normalize(s.UserRepo.Delete(id))
}
