package server

import (
	"log/slog"
	"net/http"

	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/services/directory"
	"github.com/wilschoy78/school-mis-api/internal/services/validation"
)

// listParams are the query parameters of GET /users.
type listParams struct {
	Page   int    `mapstructure:"page"`
	Limit  int    `mapstructure:"limit"`
	Role   string `mapstructure:"role"`
	Search string `mapstructure:"search"`
}

// ProfileFields are the optional account attributes shared by create and update.
type ProfileFields struct {
	MiddleName     *string `json:"middleName"`
	Phone          *string `json:"phone"`
	EmployeeID     *string `json:"employeeId"`
	StudentID      *string `json:"studentId"`
	Address        *string `json:"address"`
	DateOfBirth    *string `json:"dateOfBirth"`
	ProfilePicture *string `json:"profilePicture"`
	Department     *string `json:"department"`
	Position       *string `json:"position"`
}

func (p ProfileFields) profile() directory.Profile {
	return directory.Profile{
		MiddleName:     p.MiddleName,
		Phone:          p.Phone,
		EmployeeID:     p.EmployeeID,
		StudentID:      p.StudentID,
		Address:        p.Address,
		DateOfBirth:    p.DateOfBirth,
		ProfilePicture: p.ProfilePicture,
		Department:     p.Department,
		Position:       p.Position,
	}
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Roles         []string `json:"roles"`
	ProfileFields `json:",squash"`
}

// UpdateUserRequest is the body of PUT /users/{id}. Absent fields are unchanged.
type UpdateUserRequest struct {
	Email         *string  `json:"email"`
	Password      *string  `json:"password"`
	FirstName     *string  `json:"firstName"`
	LastName      *string  `json:"lastName"`
	Roles         []string `json:"roles"`
	Status        *string  `json:"status"`
	ProfileFields `json:",squash"`
}

// UpdateStatusRequest is the body of PATCH /users/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePasswordRequest is the body of PATCH /users/{id}/password.
type UpdatePasswordRequest struct {
	Password string `json:"password"`
}

// HandleListUsers serves one page of the directory.
func HandleListUsers(svc directoryService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defaults := directory.NewListQuery()
		params := listParams{Page: defaults.Page, Limit: defaults.Limit}
		if err := decodeQuery(r, &params); err != nil {
			writeError(w, r, logger, err)
			return
		}

		page, err := svc.List(r.Context(), directory.ListQuery{
			Page:   params.Page,
			Limit:  params.Limit,
			Roles:  directory.ParseRoleFilter(params.Role),
			Search: params.Search,
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, page)
	}
}

// HandleUserStats serves employee statistics.
func HandleUserStats(svc directoryService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, stats)
	}
}

// HandleGetUser serves one account.
func HandleGetUser(svc directoryService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		account, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, account)
	}
}

// HandleCreateUser provisions an account.
func HandleCreateUser(svc directoryService, v *validation.RequestValidator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := v.Decode(validation.SchemaCreateUser, r.Body, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		roles, err := parseRoles(req.Roles)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if superAdminGrantDenied(r, roles) {
			writeError(w, r, logger, errRoleGrantForbidden)
			return
		}

		account, err := svc.Create(r.Context(), directory.CreateInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Roles:     roles,
			Profile:   req.profile(),
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, account)
	}
}

// HandleUpdateUser applies a partial update.
func HandleUpdateUser(svc directoryService, v *validation.RequestValidator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		var req UpdateUserRequest
		if err := v.Decode(validation.SchemaUpdateUser, r.Body, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		roles, err := parseRoles(req.Roles)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if superAdminGrantDenied(r, roles) {
			writeError(w, r, logger, errRoleGrantForbidden)
			return
		}

		in := directory.UpdateInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Roles:     roles,
			Profile:   req.profile(),
		}
		if req.Status != nil {
			status := models.AccountStatus(*req.Status)
			in.Status = &status
		}

		account, err := svc.Update(r.Context(), id, in)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, account)
	}
}

// HandleUpdateUserStatus moves an account to a new status.
func HandleUpdateUserStatus(svc directoryService, v *validation.RequestValidator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		var req UpdateStatusRequest
		if err := v.Decode(validation.SchemaUpdateStatus, r.Body, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		account, err := svc.UpdateStatus(r.Context(), id, models.AccountStatus(req.Status))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, account)
	}
}

// HandleUpdateUserPassword sets a new password and clears the forced-change flag.
func HandleUpdateUserPassword(svc directoryService, v *validation.RequestValidator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		var req UpdatePasswordRequest
		if err := v.Decode(validation.SchemaUpdatePassword, r.Body, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		confirmation, err := svc.UpdatePassword(r.Context(), id, req.Password)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, confirmation)
	}
}

// HandleDeleteUser removes an account.
func HandleDeleteUser(svc directoryService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
