package service

import (
	"quizcraft_backend/internal/config"
	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/repository"
	"quizcraft_backend/internal/util"
	"quizcraft_backend/pkg/clock"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	Clock    clock.Clock
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, clk clock.Clock) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		Clock:    clk,
	}
}

func (s *AuthService) Register(user *model.User) error {
	existing, err := s.UserRepo.FindByEmail(user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return util.ErrEmailRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	if user.Role == "" {
		user.Role = model.Student
	}
	return s.UserRepo.Create(user)
}

func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", util.ErrPermissionDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", util.ErrPermissionDenied
	}
	_ = s.UserRepo.UpdateLastLogin(user.ID, s.Clock.Now())
	return util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}
	user, err := s.UserRepo.FindByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}
