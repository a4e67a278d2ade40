package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/internal/models"
	"github.com/flipnotify/backend/internal/types"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService authenticates dashboard operators and issues JWT tokens.
type AuthService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
	}
}

// Login checks the credentials against the admin_users table and returns a
// signed token on success.
func (s *AuthService) Login(username, password string) (string, error) {
	var admin models.AdminUser
	if err := s.db.Where("username = ?", username).First(&admin).Error; err != nil {
		return "", ErrInvalidCredentials
	}

	if !admin.CheckPassword(password) {
		return "", ErrInvalidCredentials
	}

	return s.generateToken(&admin)
}

func (s *AuthService) generateToken(admin *models.AdminUser) (string, error) {
	claims := jwt.MapClaims{
		"admin_id": float64(admin.ID),
		"username": admin.Username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken parses and validates a bearer token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*types.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	adminID, ok := claims["admin_id"].(float64)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	username, _ := claims["username"].(string)

	return &types.TokenClaims{
		AdminID:  uint(adminID),
		Username: username,
	}, nil
}
