/*
Package handler provides HTTP handler functions for account management,
notifications, direct messages, file storage, and the WebSocket channel.
*/
package handler

import (
	"context"
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"campushub/internal/app/db"
	"campushub/internal/app/identity"
	"campushub/internal/app/store"
	"campushub/internal/pkg/auth/jwt"
	"campushub/internal/pkg/errs"
	"campushub/internal/pkg/logx"
	"campushub/internal/pkg/req"
	"campushub/internal/pkg/resp"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{4,20}$`)

type RegisterInput struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// HandleRegister processes the request to create a new account. Role defaults
// to student when omitted; staff accounts are normally seeded by an admin.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		if input.Role == "" {
			input.Role = identity.RoleStudent
		}
		if !identity.ValidRole(input.Role) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidRole))
			return
		}

		if input.DisplayName == "" {
			input.DisplayName = input.Username
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		user, err := deps.Store.CreateUser(r.Context(), store.CreateUserParams{
			Username:     input.Username,
			PasswordHash: string(hashedPassword),
			DisplayName:  input.DisplayName,
			Role:         input.Role,
		})

		if err != nil {
			if db.IsUniqueViolation(err) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "failed to create user in database")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Store.UpdateLastLogin(r.Context(), user.ID); err != nil {
			logx.Error(err, "register: failed to update last_login_at", "user_id", user.ID)
		}

		payload := &jwt.Payload{
			ID:          user.ID,
			Role:        user.Role,
			DisplayName: user.DisplayName,
		}

		tokenString, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.SessionExpiration)
		if err != nil {
			logx.Error(err, "failed to generate token after registration")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": tokenString,
			"user": map[string]any{
				"id":          user.ID,
				"username":    user.Username,
				"displayName": user.DisplayName,
				"role":        user.Role,
				"lastLoginAt": time.Now().Format(time.RFC3339),
			},
		})
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies user credentials and issues a JWT token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		dbUser, err := deps.Store.GetUserByUsername(r.Context(), input.Username)
		if err != nil {
			logx.Warn("login: user fetch failed", "username", input.Username, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(dbUser.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := deps.Store.UpdateLastLogin(r.Context(), dbUser.ID); err != nil {
			logx.Error(err, "login: failed to update last_login_at", "user_id", dbUser.ID)
		}

		payload := &jwt.Payload{
			ID:          dbUser.ID,
			Role:        dbUser.Role,
			DisplayName: dbUser.DisplayName,
		}

		token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.SessionExpiration)
		if err != nil {
			logx.Error(err, "login: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user": map[string]any{
				"id":          dbUser.ID,
				"username":    dbUser.Username,
				"displayName": dbUser.DisplayName,
				"role":        dbUser.Role,
				"lastLoginAt": time.Now().Format(time.RFC3339),
			},
		})
	}
}

// HandleGetProfile retrieves the current authenticated user's profile and
// refreshes last_login_at when it has gone stale.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		dbUser, err := deps.Store.GetUserByID(r.Context(), payload.ID)
		if err != nil {
			logx.Warn("get_profile: user not found", "id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var lastLoginResponse any
		if dbUser.LastLoginAt.Valid {
			lastLoginResponse = dbUser.LastLoginAt.Time.Format(time.RFC3339)
		}

		shouldUpdate := !dbUser.LastLoginAt.Valid || time.Since(dbUser.LastLoginAt.Time) > 30*time.Minute
		if shouldUpdate {
			go func(id string) {
				if err := deps.Store.UpdateLastLogin(context.Background(), id); err != nil {
					logx.Error(err, "get_profile: failed to update last_login_at", "user_id", id)
				}
			}(dbUser.ID)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": map[string]any{
				"id":          dbUser.ID,
				"username":    dbUser.Username,
				"displayName": dbUser.DisplayName,
				"role":        dbUser.Role,
				"lastLoginAt": lastLoginResponse,
			},
		})
	}
}
