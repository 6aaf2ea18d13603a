package repository

import (
	"database/sql"
	"strings"
	"time"

	"fable/pkg/database"
	"fable/pkg/models"
)

type AuthRepository interface {
	CreateUser(username, name, hashedPassword, email string) (models.User, error)
	GetUserByUsername(username string) (models.User, string, error)
	GetUserByID(id int) (models.User, error)
	RotateRefreshToken(userID int, token string, expiresAt time.Time) error
	FindRefreshToken(token string, userID int) (models.RefreshToken, error)
	DeleteRefreshTokenByToken(token string) error
	DeleteExpiredRefreshTokens() (int64, error)
}

type authRepository struct {
	db *sql.DB
}

func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

func (r *authRepository) CreateUser(username, name, hashedPassword, email string) (models.User, error) {
	var user models.User
	var dbEmail sql.NullString
	if email != "" {
		dbEmail = sql.NullString{String: email, Valid: true}
	}
	err := r.db.QueryRow(
		`INSERT INTO users (username, name, password, email) VALUES ($1, $2, $3, $4)
		 RETURNING user_id, username, name, email`,
		strings.ToLower(username), name, hashedPassword, dbEmail,
	).Scan(&user.ID, &user.Username, &user.Name, &dbEmail)
	user.Email = dbEmail.String
	return user, err
}

func (r *authRepository) GetUserByUsername(username string) (models.User, string, error) {
	var user models.User
	var hashedPw string
	var email sql.NullString
	err := r.db.QueryRow(
		`SELECT user_id, username, name, password, email FROM users WHERE username = $1`,
		strings.ToLower(username),
	).Scan(&user.ID, &user.Username, &user.Name, &hashedPw, &email)
	user.Email = email.String
	return user, hashedPw, err
}

func (r *authRepository) GetUserByID(id int) (models.User, error) {
	var user models.User
	var email sql.NullString
	err := r.db.QueryRow(
		`SELECT user_id, username, name, email FROM users WHERE user_id = $1`, id,
	).Scan(&user.ID, &user.Username, &user.Name, &email)
	user.Email = email.String
	return user, err
}

// RotateRefreshToken enforces the one-live-session-per-user policy: the old
// row (if any) is deleted and the new one inserted in a single transaction,
// so concurrent logins can never leave zero or two rows behind.
func (r *authRepository) RotateRefreshToken(userID int, token string, expiresAt time.Time) error {
	return database.WithTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`,
			userID, token, expiresAt,
		)
		return err
	})
}

func (r *authRepository) FindRefreshToken(token string, userID int) (models.RefreshToken, error) {
	var rt models.RefreshToken
	err := r.db.QueryRow(
		`SELECT id, user_id, token, expires_at FROM refresh_tokens
		 WHERE token = $1 AND user_id = $2`,
		token, userID,
	).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt)
	return rt, err
}

func (r *authRepository) DeleteRefreshTokenByToken(token string) error {
	_, err := r.db.Exec(`DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *authRepository) DeleteExpiredRefreshTokens() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
