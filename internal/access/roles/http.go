// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/backoffice/internal/platform/repository"
	requestutil "github.com/taibuivan/backoffice/internal/platform/request"
	"github.com/taibuivan/backoffice/internal/platform/respond"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// Handler exposes role and permission management.
type Handler struct {
	service *Service
	paging  pagination.Policy
}

// NewHandler creates the role and permission handler.
func NewHandler(service *Service, paging pagination.Policy) *Handler {
	return &Handler{service: service, paging: paging}
}

// RegisterRoutes mounts /roles and /permissions on an authenticated admin router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/roles", func(roles chi.Router) {
		roles.Get("/", handler.listRoles)
		roles.Post("/", handler.createRole)
		roles.Get("/export", handler.exportRoles)
		roles.Get("/{id}", handler.getRole)
		roles.Patch("/{id}", handler.updateRole)
		roles.Delete("/{id}", handler.deleteRole)
		roles.Put("/{id}/permissions", handler.syncPermissions)
	})

	router.Route("/permissions", func(permissions chi.Router) {
		permissions.Get("/", handler.listPermissions)
		permissions.Post("/", handler.createPermission)
		permissions.Delete("/{id}", handler.deletePermission)
	})
}

// # Roles

func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := handler.service.ListRoles(request.Context(), actor, requestutil.ListQuery(request, handler.paging))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, "Roles retrieved", page.Items, page.Meta)
}

func (handler *Handler) getRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.GetRole(request.Context(), actor, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Role retrieved", role)
}

func (handler *Handler) createRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input RoleInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.CreateRole(request.Context(), actor, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, "Role created", role)
}

func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input RoleUpdate
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.UpdateRole(request.Context(), actor, requestutil.ID(request, "id"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Role updated", role)
}

func (handler *Handler) syncPermissions(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		Permissions []string `json:"permissions"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.SyncPermissions(request.Context(), actor, requestutil.ID(request, "id"), input.Permissions)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Role permissions updated", role)
}

func (handler *Handler) deleteRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteRole(request.Context(), actor, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Role deleted", nil)
}

func (handler *Handler) exportRoles(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	format, err := repository.ParseFormat(request.URL.Query().Get("format"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	export, err := handler.service.ExportRoles(request.Context(), actor, requestutil.Filters(request), format)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.File(writer, export.Filename, export.ContentType, export.Body)
}

// # Permissions

func (handler *Handler) listPermissions(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := handler.service.ListPermissions(request.Context(), actor, requestutil.ListQuery(request, handler.paging))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, "Permissions retrieved", page.Items, page.Meta)
}

func (handler *Handler) createPermission(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input PermissionInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.CreatePermission(request.Context(), actor, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, "Permission created", record)
}

func (handler *Handler) deletePermission(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeletePermission(request.Context(), actor, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Permission deleted", nil)
}
