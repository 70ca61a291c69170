package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/repository"
)

// OrganizationsHandler 租户管理（平台级）
type OrganizationsHandler struct {
	orgs   repository.OrganizationsRepo
	users  repository.UsersRepo
	logger *zap.Logger
}

func NewOrganizationsHandler(orgs repository.OrganizationsRepo, users repository.UsersRepo, logger *zap.Logger) *OrganizationsHandler {
	return &OrganizationsHandler{orgs: orgs, users: users, logger: logger}
}

func (h *OrganizationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/organizations")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasSuffix(path, "/users"):
		orgID := strings.TrimSuffix(path, "/users")
		switch r.Method {
		case http.MethodGet:
			h.listUsers(w, r, orgID)
		case http.MethodPost:
			h.createUser(w, r, orgID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasSuffix(path, "/deactivate"):
		orgID := strings.TrimSuffix(path, "/deactivate")
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.setActive(w, r, orgID, false)
	default:
		// /{orgID}
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, path)
		case http.MethodDelete:
			h.delete(w, r, path)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (h *OrganizationsHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.orgs.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(items))
	for _, org := range items {
		out = append(out, org.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

func (h *OrganizationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrgName      string `json:"org_name"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if payload.OrgName == "" {
		writeError(w, &domain.ValidationError{Field: "org_name", Reason: "must not be empty"})
		return
	}
	org := &domain.Organization{
		OrgID:        uuid.NewString(),
		OrgName:      payload.OrgName,
		ContactEmail: payload.ContactEmail,
		ContactPhone: payload.ContactPhone,
		Active:       true,
	}
	if err := h.orgs.CreateOrganization(r.Context(), org); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("organization created", zap.String("org_name", org.OrgName))
	writeJSON(w, http.StatusOK, Ok(org.ToJSON()))
}

func (h *OrganizationsHandler) get(w http.ResponseWriter, r *http.Request, orgID string) {
	org, err := h.orgs.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(org.ToJSON()))
}

func (h *OrganizationsHandler) setActive(w http.ResponseWriter, r *http.Request, orgID string, active bool) {
	if err := h.orgs.SetOrganizationActive(r.Context(), orgID, active); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"org_id": orgID, "active": active}))
}

func (h *OrganizationsHandler) delete(w http.ResponseWriter, r *http.Request, orgID string) {
	if err := h.orgs.DeleteOrganization(r.Context(), orgID); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("organization deleted", zap.String("org_id", orgID))
	writeJSON(w, http.StatusOK, Ok(map[string]any{"org_id": orgID, "deleted": true}))
}

func (h *OrganizationsHandler) listUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	items, err := h.users.ListUsers(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(items))
	for _, u := range items {
		out = append(out, u.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

func (h *OrganizationsHandler) createUser(w http.ResponseWriter, r *http.Request, orgID string) {
	var payload struct {
		Account string `json:"account"`
		Role    string `json:"role"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if payload.Account == "" {
		writeError(w, &domain.ValidationError{Field: "account", Reason: "must not be empty"})
		return
	}
	if payload.Role == "" {
		payload.Role = domain.RoleViewer
	}
	if !domain.ValidRole(payload.Role) {
		writeError(w, &domain.ValidationError{Field: "role", Reason: "unknown role " + payload.Role})
		return
	}
	user := &domain.User{
		UserID:  uuid.NewString(),
		OrgID:   orgID,
		Account: payload.Account,
		Role:    payload.Role,
		Active:  true,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user.ToJSON()))
}
