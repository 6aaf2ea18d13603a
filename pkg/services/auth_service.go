package services

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"fable/pkg/apperr"
	"fable/pkg/models"
	"fable/pkg/repository"
	"fable/pkg/token"

	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Signup(req models.SignupRequest) (models.User, error)
	CheckDuplicate(username string) (bool, error)
	// Login returns the response body plus the refresh token and its expiry
	// so the handler can set the session cookie.
	Login(req models.LoginRequest) (models.AuthResponse, string, time.Time, error)
	Refresh(cookieToken string) (models.AuthResponse, error)
	Logout(cookieToken string) error
}

type authService struct {
	repo   repository.AuthRepository
	tokens *token.Service
}

func NewAuthService(repo repository.AuthRepository, tokens *token.Service) AuthService {
	return &authService{repo: repo, tokens: tokens}
}

func (s *authService) Signup(req models.SignupRequest) (models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.repo.CreateUser(req.Username, req.Name, string(hashed), req.Email)
	if err != nil {
		if isDuplicateKey(err) {
			return models.User{}, apperr.BadRequest("username already registered")
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *authService) CheckDuplicate(username string) (bool, error) {
	_, _, err := s.repo.GetUserByUsername(username)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *authService) Login(req models.LoginRequest) (models.AuthResponse, string, time.Time, error) {
	user, hashedPw, err := s.repo.GetUserByUsername(req.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuthResponse{}, "", time.Time{}, apperr.BadRequest("incorrect username or password")
	}
	if err != nil {
		return models.AuthResponse{}, "", time.Time{}, err
	}

	// bcrypt comparison is constant-time for equal-cost hashes.
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPw), []byte(req.Password)); err != nil {
		return models.AuthResponse{}, "", time.Time{}, apperr.BadRequest("incorrect username or password")
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return models.AuthResponse{}, "", time.Time{}, err
	}

	refreshToken, expiresAt, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return models.AuthResponse{}, "", time.Time{}, err
	}

	// One live session per user: the previous refresh token (another device,
	// an older login) is superseded atomically.
	if err := s.repo.RotateRefreshToken(user.ID, refreshToken, expiresAt); err != nil {
		return models.AuthResponse{}, "", time.Time{}, err
	}

	resp := models.AuthResponse{UserID: user.ID, Name: user.Name, AccessToken: accessToken}
	return resp, refreshToken, expiresAt, nil
}

// Refresh exchanges a valid refresh cookie for a new access token. The
// refresh token itself is not rotated here; rotation only happens at login.
func (s *authService) Refresh(cookieToken string) (models.AuthResponse, error) {
	if cookieToken == "" {
		return models.AuthResponse{}, apperr.Unauthorized("authentication required")
	}

	claims, err := s.tokens.VerifyRefreshToken(cookieToken)
	if err != nil {
		return models.AuthResponse{}, apperr.Unauthorized("session expired, please log in again")
	}

	// Signature and expiry are fine, but the token must also still be the
	// live one: a later login on another device deletes this row.
	if _, err := s.repo.FindRefreshToken(cookieToken, claims.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuthResponse{}, apperr.Unauthorized("session expired, please log in again")
		}
		return models.AuthResponse{}, err
	}

	user, err := s.repo.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuthResponse{}, apperr.Unauthorized("session expired, please log in again")
		}
		return models.AuthResponse{}, err
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return models.AuthResponse{}, err
	}

	return models.AuthResponse{UserID: user.ID, Name: user.Name, AccessToken: accessToken}, nil
}

// Logout revokes the refresh token if one was presented. Deleting zero rows
// is fine; logout never has to prove a session existed.
func (s *authService) Logout(cookieToken string) error {
	if cookieToken == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshTokenByToken(cookieToken); err != nil {
		log.Println("[AUTH] failed to delete refresh token:", err)
		return err
	}
	return nil
}

func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}
