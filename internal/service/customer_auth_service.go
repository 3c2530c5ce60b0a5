package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/kedai-next/internal/cache"
	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CustomerAuthService 客户认证服务
type CustomerAuthService struct {
	cfg          *config.Config
	customerRepo repository.CustomerRepository
}

// NewCustomerAuthService 创建客户认证服务
func NewCustomerAuthService(cfg *config.Config, customerRepo repository.CustomerRepository) *CustomerAuthService {
	return &CustomerAuthService{
		cfg:          cfg,
		customerRepo: customerRepo,
	}
}

// CustomerJWTClaims 客户 JWT 声明
type CustomerJWTClaims struct {
	CustomerID   uint   `json:"customer_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateCustomerJWT 生成客户 JWT Token
func (s *CustomerAuthService) GenerateCustomerJWT(customer *models.Customer) (string, time.Time, error) {
	expireHours := s.cfg.CustomerJWT.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	expiresAt := time.Now().Add(time.Duration(expireHours) * time.Hour)
	claims := CustomerJWTClaims{
		CustomerID:   customer.ID,
		Email:        customer.Email,
		TokenVersion: customer.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.CustomerJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseCustomerJWT 解析客户 JWT Token
func (s *CustomerAuthService) ParseCustomerJWT(tokenString string) (*CustomerJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &CustomerJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.CustomerJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomerJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrTokenInvalid
}

// RegisterInput 客户注册输入
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
}

// Register 客户注册
func (s *CustomerAuthService) Register(input RegisterInput) (*models.Customer, string, time.Time, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password); err != nil {
		return nil, "", time.Time{}, err
	}

	exist, err := s.customerRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if exist != nil {
		return nil, "", time.Time{}, ErrCustomerExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = resolveNicknameFromEmail(normalized)
	}
	now := time.Now()
	customer := &models.Customer{
		Email:        normalized,
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
		Phone:        strings.TrimSpace(input.Phone),
		Status:       constants.CustomerStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.customerRepo.Create(customer); err != nil {
		return nil, "", time.Time{}, err
	}

	token, expiresAt, err := s.GenerateCustomerJWT(customer)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	customer.LastLoginAt = &now
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetCustomerAuthState(context.Background(), cache.BuildCustomerAuthState(customer))

	return customer, token, expiresAt, nil
}

// Login 客户登录
func (s *CustomerAuthService) Login(email, password string) (*models.Customer, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	customer, err := s.customerRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if customer == nil {
		return nil, "", time.Time{}, ErrCredentialsInvalid
	}
	if strings.ToLower(customer.Status) != constants.CustomerStatusActive {
		return nil, "", time.Time{}, ErrCustomerDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrCredentialsInvalid
	}

	token, expiresAt, err := s.GenerateCustomerJWT(customer)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	customer.LastLoginAt = &now
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetCustomerAuthState(context.Background(), cache.BuildCustomerAuthState(customer))

	return customer, token, expiresAt, nil
}

// ChangePassword 登录态修改密码
// 修改成功后 token 版本加一，旧 token 全部失效。
func (s *CustomerAuthService) ChangePassword(customerID uint, oldPassword, newPassword string) error {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrCustomerNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrCredentialsInvalid
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, newPassword); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	customer.PasswordHash = string(hashedPassword)
	customer.UpdatedAt = time.Now()
	customer.TokenVersion++
	if err := s.customerRepo.Update(customer); err != nil {
		return err
	}
	_ = cache.SetCustomerAuthState(context.Background(), cache.BuildCustomerAuthState(customer))
	return nil
}

// UpdateProfile 更新客户资料
func (s *CustomerAuthService) UpdateProfile(customerID uint, displayName, phone *string) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	updated := false
	if displayName != nil && strings.TrimSpace(*displayName) != "" {
		customer.DisplayName = strings.TrimSpace(*displayName)
		updated = true
	}
	if phone != nil && strings.TrimSpace(*phone) != "" {
		customer.Phone = strings.TrimSpace(*phone)
		updated = true
	}
	if !updated {
		return nil, ErrInvalidInput
	}

	customer.UpdatedAt = time.Now()
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomerByID 获取客户信息
func (s *CustomerAuthService) GetCustomerByID(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, ErrCustomerNotFound
	}
	customer, err := s.customerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidInput
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidInput
	}
	return normalized, nil
}

func resolveNicknameFromEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}
