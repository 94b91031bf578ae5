package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/moodlog/internal/auth"
	"github.com/your-org/moodlog/internal/storage"
	"github.com/your-org/moodlog/pkg/dto"
)

type AccountHandler struct {
	db       *storage.PostgresStore
	avatars  *storage.AvatarStore
	jwtKey   []byte
	tokenTTL time.Duration
}

func NewAccountHandler(db *storage.PostgresStore, avatars *storage.AvatarStore, jwtKey []byte, tokenTTL time.Duration) *AccountHandler {
	return &AccountHandler{db: db, avatars: avatars, jwtKey: jwtKey, tokenTTL: tokenTTL}
}

// Signup creates an account from a multipart form: handle, password, and
// an optional avatar file. The account row and its emotion log are
// provisioned atomically; the avatar object is uploaded afterwards.
func (h *AccountHandler) Signup(c *gin.Context) {
	handle := strings.TrimSpace(c.PostForm("handle"))
	password := c.PostForm("password")
	if handle == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "handle and password are required"})
		return
	}

	var avatarKey, avatarCT string
	var avatarData []byte

	if fh, err := c.FormFile("avatar"); err == nil {
		ct, ok := allowedUpload(fh.Filename)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type, allowed: png, jpg, jpeg, gif"})
			return
		}
		data, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		avatarKey = avatarObjectKey(handle, fh.Filename)
		avatarCT = ct
		avatarData = data
	}

	account, err := h.db.CreateAccount(c.Request.Context(), handle, password, avatarKey)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateHandle):
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("handle %q already exists, please choose another one", handle)})
		case errors.Is(err, storage.ErrInvalidHandle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "handle may only contain lowercase letters, digits and underscores (max 32)"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if avatarKey != "" {
		if err := h.avatars.Put(c.Request.Context(), avatarKey, avatarData, avatarCT); err != nil {
			slog.Warn("upload avatar", "handle", handle, "error", err)
			_ = h.db.UpdateAvatar(c.Request.Context(), handle, "")
			account.AvatarKey = ""
		}
	}

	c.JSON(http.StatusCreated, accountResponse(account.Handle, account.AvatarKey, account.CreatedAt))
}

// Login verifies the credential and mints a bearer token. A mismatch or
// an unknown handle yields 401, not an error response body difference.
func (h *AccountHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, account, err := h.db.Login(c.Request.Context(), req.Handle, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid handle or password"})
		return
	}

	token, err := auth.GenerateToken(account.Handle, h.jwtKey, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{Token: token, Handle: account.Handle})
}

func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.db.GetAccount(c.Request.Context(), c.Param("handle"))
	if err != nil {
		if errors.Is(err, storage.ErrUnknownAccount) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, accountResponse(account.Handle, account.AvatarKey, account.CreatedAt))
}

// UpdateAvatar overwrites the profile picture. The previous object is
// removed best-effort after the new reference is committed.
func (h *AccountHandler) UpdateAvatar(c *gin.Context) {
	handle := c.Param("handle")

	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no avatar file"})
		return
	}

	ct, ok := allowedUpload(fh.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type, allowed: png, jpg, jpeg, gif"})
		return
	}

	data, err := readUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.db.GetAccount(c.Request.Context(), handle)
	if err != nil {
		if errors.Is(err, storage.ErrUnknownAccount) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	key := avatarObjectKey(handle, fh.Filename)
	if err := h.avatars.Put(c.Request.Context(), key, data, ct); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.UpdateAvatar(c.Request.Context(), handle, key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if account.AvatarKey != "" && account.AvatarKey != key {
		if err := h.avatars.Delete(c.Request.Context(), account.AvatarKey); err != nil {
			slog.Warn("delete old avatar", "handle", handle, "key", account.AvatarKey, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"avatar_url": avatarURL(handle)})
}

// GetAvatar streams the profile picture from object storage.
func (h *AccountHandler) GetAvatar(c *gin.Context) {
	account, err := h.db.GetAccount(c.Request.Context(), c.Param("handle"))
	if err != nil {
		if errors.Is(err, storage.ErrUnknownAccount) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if account.AvatarKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no avatar"})
		return
	}

	data, err := h.avatars.Get(c.Request.Context(), account.AvatarKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "avatar not found"})
		return
	}

	ct, _ := allowedUpload(account.AvatarKey)
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Data(http.StatusOK, ct, data)
}

// Delete removes the account and its emotion log together. The avatar
// object is cleaned up best-effort after the transaction commits.
func (h *AccountHandler) Delete(c *gin.Context) {
	handle := c.Param("handle")

	account, err := h.db.GetAccount(c.Request.Context(), handle)
	if err != nil && !errors.Is(err, storage.ErrUnknownAccount) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.DeleteAccount(c.Request.Context(), handle); err != nil {
		switch {
		case errors.Is(err, storage.ErrUnknownAccount):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.Is(err, storage.ErrInvalidHandle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid handle"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("error deleting account: %v", err)})
		}
		return
	}

	if account != nil && account.AvatarKey != "" {
		if err := h.avatars.Delete(c.Request.Context(), account.AvatarKey); err != nil {
			slog.Warn("delete avatar", "handle", handle, "key", account.AvatarKey, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "your account has been deleted"})
}

func avatarObjectKey(handle, filename string) string {
	return fmt.Sprintf("avatars/%s/%s%s", handle, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
}

func avatarURL(handle string) string {
	return "/v1/accounts/" + handle + "/avatar"
}

func accountResponse(handle, avatarKey string, createdAt time.Time) dto.AccountResponse {
	resp := dto.AccountResponse{
		Handle:    handle,
		CreatedAt: createdAt.Format(time.RFC3339),
	}
	if avatarKey != "" {
		resp.AvatarURL = avatarURL(handle)
	}
	return resp
}
