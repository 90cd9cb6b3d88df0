package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/credhub/internal/account"
	"github.com/geocoder89/credhub/internal/actorctx"
	"github.com/geocoder89/credhub/internal/domain/user"
	"github.com/geocoder89/credhub/internal/session"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Signup(ctx context.Context, email, password string) (account.Session, error)
	Login(ctx context.Context, email, password string) (account.Session, error)
	WhoAmI(ctx context.Context, subjectID string) (user.Identity, error)
}

type AuthHandler struct {
	accounts AccountService
	cookies  session.Policy
	log      *slog.Logger
}

func NewAuthHandler(accounts AccountService, cookies session.Policy, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		cookies:  cookies,
		log:      log,
	}
}

// CredentialsRequest is the body of both signup and login.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"email"`
	Password string `json:"password" binding:"min=10" label:"Password"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	sess, err := h.accounts.Signup(cctx, req.Email, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			RespondConflict(ctx, "User already exists")
		case errors.Is(err, user.ErrEmptyPassword):
			RespondBadRequest(ctx, "Password must be at least 10 characters")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "signup failed", "err", err, "request_id", requestIDFrom(ctx))
			RespondInternal(ctx)
		}
		return
	}

	http.SetCookie(ctx.Writer, h.cookies.Cookie(sess.Token))

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User registered successfully",
		"user":    sess.User,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	sess, err := h.accounts.Login(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			RespondUnauthorized(ctx, "Invalid credentials")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx)
		return
	}

	http.SetCookie(ctx.Writer, h.cookies.Cookie(sess.Token))

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    sess.User,
	})
}

// Logout always succeeds: there is no server-side session to revoke.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, h.cookies.Clear())

	ctx.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Me expects RequireSession to have verified the token already.
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondError(ctx, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	identity, err := h.accounts.WhoAmI(cctx, userID)

	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			RespondError(ctx, http.StatusNotFound, "User not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "fetch current user failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}

	ctx.JSON(http.StatusOK, identity)
}
