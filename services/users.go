package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"matchlink/db"
	"matchlink/models"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(stored, password string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(hash) == parts[1]
}

// Register создает пользователя с argon2id-хэшем пароля
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidOperation)
	}

	var exists int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("email = ?", email).Count(&exists).Error
	if err != nil {
		return nil, fmt.Errorf("error checking user: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: user already exists", ErrConflict)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{Name: name, Email: email, Password: passwordHash}
	if err := db.GetWriteDB(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// Login проверяет пароль и выдает новый bearer-токен, отзывая старые
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
	}
	if !verifyPassword(user.Password, password) {
		return "", nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)

	err = db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserTokens{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserTokens{UserID: user.ID, Token: token}).Error
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}
	return token, &user, nil
}

// Logout отзывает все токены пользователя
func (s *UserService) Logout(ctx context.Context, userID int64) error {
	return db.GetWriteDB(ctx).Where("user_id = ?", userID).Delete(&models.UserTokens{}).Error
}

// Authenticate возвращает пользователя по bearer-токену. Одна и та же
// проверка обслуживает REST middleware и рукопожатие websocket.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrForbidden)
	}
	var userToken models.UserTokens
	err := db.GetReadOnlyDB(ctx).Where("token = ?", token).First(&userToken).Error
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", ErrForbidden)
	}
	return s.GetByID(ctx, userToken.UserID)
}

// GetByID - поиск пользователя в справочнике
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Search ищет пользователей по подстроке имени
func (s *UserService) Search(ctx context.Context, name string, limit, offset int) ([]models.UserView, error) {
	var users []models.User
	err := db.GetReadOnlyDB(ctx).
		Where("name LIKE ?", name+"%").
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	views := make([]models.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return views, nil
}
