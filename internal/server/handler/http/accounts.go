// Package http provides the HTTP handlers and routing of the account API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JohanU89-coder/radius-api/internal/middleware"
	"github.com/JohanU89-coder/radius-api/internal/models"
)

// AccountService defines the account operations required by the AccountHandler.
type AccountService interface {
	// Create inserts a new account.
	Create(ctx context.Context, username string, fields models.AccountFields) error
	// Get returns the account or models.ErrAccountNotFound.
	Get(ctx context.Context, username string) (*models.Account, error)
	// List returns one profile per known account.
	List(ctx context.Context) ([]models.Profile, error)
	// Update patches the supplied fields.
	Update(ctx context.Context, username string, fields models.AccountFields) error
	// Delete removes the account from every relation.
	Delete(ctx context.Context, username string) error
	// SetActive toggles the Auth-Type reject rule.
	SetActive(ctx context.Context, username string, active bool) error
}

// AccountHandler handles HTTP requests for account management.
type AccountHandler struct {
	// AccountService performs the underlying account operations.
	AccountService AccountService
	// Log receives request failures. Optional.
	Log *zap.Logger
}

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateAccountRequest is the JSON payload of POST /accounts.
type CreateAccountRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=253"`
	// SimultaneousUse and SessionTimeout accept a JSON number or a numeric string.
	SimultaneousUse *json.Number `json:"simultaneous_use,omitempty"`
	SessionTimeout  *json.Number `json:"session_timeout,omitempty"`
	Group           *string      `json:"group,omitempty" validate:"omitempty,max=64"`
	FirstName       *string      `json:"firstname,omitempty" validate:"omitempty,max=200"`
	LastName        *string      `json:"lastname,omitempty" validate:"omitempty,max=200"`
	Email           *string      `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Department      *string      `json:"department,omitempty" validate:"omitempty,max=200"`
	CreatedBy       string       `json:"created_by,omitempty" validate:"max=128"`
}

// UpdateAccountRequest is the JSON payload of PATCH /accounts/{username}.
// Omitted fields are left unchanged.
type UpdateAccountRequest struct {
	Password        *string      `json:"password,omitempty" validate:"omitempty,max=253"`
	SimultaneousUse *json.Number `json:"simultaneous_use,omitempty"`
	SessionTimeout  *json.Number `json:"session_timeout,omitempty"`
	Group           *string      `json:"group,omitempty" validate:"omitempty,max=64"`
	FirstName       *string      `json:"firstname,omitempty" validate:"omitempty,max=200"`
	LastName        *string      `json:"lastname,omitempty" validate:"omitempty,max=200"`
	Email           *string      `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Department      *string      `json:"department,omitempty" validate:"omitempty,max=200"`
	UpdatedBy       string       `json:"updated_by,omitempty" validate:"max=128"`
}

// AccountResponse is the JSON representation of an account.
type AccountResponse struct {
	Username        string             `json:"username"`
	Active          bool               `json:"active"`
	CheckAttributes []models.Attribute `json:"check_attributes"`
	ReplyAttributes []models.Attribute `json:"reply_attributes"`
	Groups          []string           `json:"groups"`
	Profile         *models.Profile    `json:"profile,omitempty"`
}

func numberString(n *json.Number) *string {
	if n == nil {
		return nil
	}
	s := n.String()
	return &s
}

func (req CreateAccountRequest) fields() models.AccountFields {
	password := req.Password
	return models.AccountFields{
		Password:        &password,
		SimultaneousUse: numberString(req.SimultaneousUse),
		SessionTimeout:  numberString(req.SessionTimeout),
		Group:           req.Group,
		Profile: models.ProfileFields{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Email:      req.Email,
			Department: req.Department,
		},
		Actor: req.CreatedBy,
	}
}

func (req UpdateAccountRequest) fields() models.AccountFields {
	return models.AccountFields{
		Password:        req.Password,
		SimultaneousUse: numberString(req.SimultaneousUse),
		SessionTimeout:  numberString(req.SessionTimeout),
		Group:           req.Group,
		Profile: models.ProfileFields{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Email:      req.Email,
			Department: req.Department,
		},
		Actor: req.UpdatedBy,
	}
}

func toAccountResponse(a *models.Account) AccountResponse {
	resp := AccountResponse{
		Username:        a.Username,
		Active:          a.Active(),
		CheckAttributes: a.Check,
		ReplyAttributes: a.Reply,
		Groups:          a.Groups,
		Profile:         a.Profile,
	}
	if resp.CheckAttributes == nil {
		resp.CheckAttributes = []models.Attribute{}
	}
	if resp.ReplyAttributes == nil {
		resp.ReplyAttributes = []models.Attribute{}
	}
	if resp.Groups == nil {
		resp.Groups = []string{}
	}
	return resp
}

// fail writes the error envelope for a service error, logging server-side failures.
func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError && h.Log != nil {
		h.Log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, msg)
}

// accountUsername returns the decoded {username} path segment, writing a
// 400 on a malformed escape. chi matches against the raw path whenever the
// client escaped a character it did not have to (bob%40realm), so the
// parameter is only unescaped in that case.
func accountUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if r.URL.RawPath == "" {
		return username, true
	}
	decoded, err := url.PathUnescape(username)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid username in path")
		return "", false
	}
	return decoded, true
}

// decode reads and validates a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return false
	}
	return true
}

// Create handles POST /accounts.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.AccountService.Create(r.Context(), req.Username, req.fields()); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"success":  fmt.Sprintf("account %s created", req.Username),
		"username": req.Username,
	})
}

// List handles GET /accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.AccountService.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// Get handles GET /accounts/{username}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	username, ok := accountUsername(w, r)
	if !ok {
		return
	}
	account, err := h.AccountService.Get(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// Update handles PATCH /accounts/{username}.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	username, ok := accountUsername(w, r)
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.AccountService.Update(r.Context(), username, req.fields()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("account %s updated", username))
}

// Delete handles DELETE /accounts/{username}.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := accountUsername(w, r)
	if !ok {
		return
	}
	if err := h.AccountService.Delete(r.Context(), username); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("account %s deleted", username))
}

// Deactivate handles POST /accounts/{username}/deactivate.
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate handles POST /accounts/{username}/activate.
func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *AccountHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	username, ok := accountUsername(w, r)
	if !ok {
		return
	}
	if err := h.AccountService.SetActive(r.Context(), username, active); err != nil {
		h.fail(w, r, err)
		return
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("account %s %s", username, state))
}
