package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"backend-queueflex/internal/models"
)

var (
	ErrBadCredentials = errors.New("auth: email or password is wrong")
	ErrUserBanned     = errors.New("auth: user is banned")
)

// UserStore looks users up by email.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// MySQLUsers reads the users table.
type MySQLUsers struct {
	db *sql.DB
}

func NewMySQLUsers(db *sql.DB) *MySQLUsers {
	return &MySQLUsers{db: db}
}

func (m *MySQLUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := m.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, role, is_banned FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.IsBanned)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrBadCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("auth/mysql: find user: %w", err)
	}
	return user, nil
}

// Login checks credentials and issues a token.
type Login struct {
	users  UserStore
	issuer *Issuer
	roles  Roles
}

func NewLogin(users UserStore, issuer *Issuer, roles Roles) *Login {
	return &Login{users: users, issuer: issuer, roles: roles}
}

func (l *Login) Authenticate(ctx context.Context, email, password string) (models.LoginResponse, error) {
	user, err := l.users.FindByEmail(ctx, email)
	if err != nil {
		return models.LoginResponse{}, err
	}
	if user.IsBanned == "y" {
		return models.LoginResponse{}, ErrUserBanned
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.LoginResponse{}, ErrBadCredentials
	}

	token, err := l.issuer.GenerateToken(user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		return models.LoginResponse{}, err
	}
	return models.LoginResponse{
		Token: token,
		User:  models.ToUserResponse(user, l.roles.IsOperator(user.Role)),
	}, nil
}
