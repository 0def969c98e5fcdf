package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/gradecraft/backend/internal/models"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords, so login failures don't reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Register(ctx context.Context, email, password, name string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// BonusGranter credits the welcome bonus inside the registration
// transaction.
type BonusGranter interface {
	GrantSignupBonus(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
}

type service struct {
	repo   *Repository
	bonus  BonusGranter
	secret []byte
}

func NewService(repo *Repository, bonus BonusGranter) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecretdev"
	}
	return &service{repo: repo, bonus: bonus, secret: []byte(secret)}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

// Register creates the account and grants the signup bonus atomically: a new
// account never exists without its welcome credit and its audit row.
func (s *service) Register(ctx context.Context, email, password, name string) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{ID: uuid.New(), Email: email, Name: name}
	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, acc, string(hash)); err != nil {
			return err
		}
		return s.bonus.GrantSignupBonus(ctx, tx, acc.ID)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return s.repo.GetByID(ctx, acc.ID)
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	acc, hash, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if acc == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(acc.ID)
}

func (s *service) issueToken(accountID uuid.UUID) (string, error) {
	c := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	c, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(c.Subject)
}
