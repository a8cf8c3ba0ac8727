package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"onecall/internal/api/dto"
	"onecall/internal/user"
	"onecall/pkg/jwt"
	"onecall/pkg/middleware"
)

// Accounts is the part of user.Service the auth handlers use.
type Accounts interface {
	Register(ctx context.Context, name, password string) (*user.Account, error)
	Login(ctx context.Context, name, password string) (*user.Account, error)
}

// AuthHandler registers gateway accounts and issues their tokens.
type AuthHandler struct {
	accounts Accounts
	secret   string
	ttl      time.Duration
	logger   *zap.Logger
}

func NewAuthHandler(accounts Accounts, secret string, ttl time.Duration, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{accounts: accounts, secret: secret, ttl: ttl, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.AuthRequest
	if !middleware.DecodeJSON(w, r, &req) {
		return
	}

	a, err := h.accounts.Register(r.Context(), req.Account, req.Password)
	if errors.Is(err, user.ErrAccountExists) {
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("register failed", zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, "could not register account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, dto.AuthResponse{Account: a.Name})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.AuthRequest
	if !middleware.DecodeJSON(w, r, &req) {
		return
	}

	a, err := h.accounts.Login(r.Context(), req.Account, req.Password)
	if errors.Is(err, user.ErrInvalidCreds) {
		middleware.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, "could not log in")
		return
	}

	token, err := jwt.GenerateToken(h.secret, a.Name, h.ttl)
	if err != nil {
		h.logger.Error("token signing failed", zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, "token error")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.AuthResponse{Account: a.Name, Token: token})
}
