package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/repository"
)

// Handler exposes HTTP endpoints for authentication.
type Handler struct {
	jwtMgr *JWTManager
	users  repository.UserRepository
	cost   int
	logger *slog.Logger
}

// NewHandler creates a new auth Handler.
func NewHandler(jwtMgr *JWTManager, users repository.UserRepository, logger *slog.Logger) *Handler {
	return &Handler{
		jwtMgr: jwtMgr,
		users:  users,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
}

// WithHashCost sets the bcrypt cost used for new passwords.
func (h *Handler) WithHashCost(cost int) *Handler {
	h.cost = cost
	return h
}

// --- Request / Response types ------------------------------------------------

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserInfo is a safe subset of user data returned in API responses.
type UserInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenResponse is the response of POST /auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// --- Handlers ----------------------------------------------------------------

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.NewBadRequestError("invalid request body").Write(w, r)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		apierrors.NewValidationError("username, email and password are required", nil).Write(w, r)
		return
	}

	if taken, err := h.exists(r, h.users.GetByUsername, req.Username); err != nil {
		apierrors.NewInternalError("failed to look up user").Write(w, r)
		return
	} else if taken {
		apierrors.NewValidationError("Username already registered", nil).Write(w, r)
		return
	}

	if taken, err := h.exists(r, h.users.GetByEmail, req.Email); err != nil {
		apierrors.NewInternalError("failed to look up user").Write(w, r)
		return
	} else if taken {
		apierrors.NewValidationError("Email already registered", nil).Write(w, r)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		apierrors.NewInternalError("failed to hash password").Write(w, r)
		return
	}

	user := &model.User{
		BaseEntity:   model.NewBaseEntity(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		h.logger.Error("failed to create user", "username", user.Username, "error", err)
		apierrors.NewInternalError("failed to create user").Write(w, r)
		return
	}

	h.logger.Info("user registered", "username", user.Username)
	writeJSON(w, http.StatusOK, UserInfo{Username: user.Username, Email: user.Email})
}

// Token handles POST /auth/token. Credentials are read from an
// OAuth2-style form body or, failing that, a JSON body.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	username, password, err := readCredentials(r)
	if err != nil {
		apierrors.NewBadRequestError("invalid request body").Write(w, r)
		return
	}

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Error("user lookup failed", "username", username, "error", err)
		}
		apierrors.NewUnauthorizedError("Incorrect username or password").Write(w, r)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		apierrors.NewUnauthorizedError("Incorrect username or password").Write(w, r)
		return
	}

	token, err := h.jwtMgr.GenerateToken(user.Username)
	if err != nil {
		apierrors.NewInternalError("failed to generate token").Write(w, r)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// --- Helpers -----------------------------------------------------------------

func (h *Handler) exists(r *http.Request, get func(ctx context.Context, key string) (*model.User, error), key string) (bool, error) {
	_, err := get(r.Context(), key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func readCredentials(r *http.Request) (username, password string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		return r.PostFormValue("username"), r.PostFormValue("password"), nil
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", "", err
	}
	return body.Username, body.Password, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
