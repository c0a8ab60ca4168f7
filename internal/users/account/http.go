// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/backoffice/internal/platform/request"
	"github.com/taibuivan/backoffice/internal/platform/resource"
	"github.com/taibuivan/backoffice/internal/platform/respond"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// Handler exposes the management endpoints of one principal kind.
type Handler[T Principal] struct {
	service *Service[T]
	shared  *resource.Routes[T]
	label   string
}

// NewHandler binds a service; label is the singular resource name ("User").
func NewHandler[T Principal](service *Service[T], label string, paging pagination.Policy) *Handler[T] {
	return &Handler[T]{
		service: service,
		shared:  resource.NewRoutes[T](service, label, paging),
		label:   label,
	}
}

// RegisterRoutes mounts the management endpoints on an authenticated admin router.
func (handler *Handler[T]) RegisterRoutes(router chi.Router) {
	handler.shared.Register(router)

	router.Post("/", handler.create)
	router.Patch("/{id}", handler.update)
	router.Put("/{id}/roles", handler.assignRoles)
}

// RegisterProfileRoutes mounts GET/PATCH for the caller's own record.
func (handler *Handler[T]) RegisterProfileRoutes(router chi.Router) {
	router.Get("/", handler.showProfile)
	router.Patch("/", handler.updateProfile)
}

func (handler *Handler[T]) create(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.Create(request.Context(), actor, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, handler.label+" created", created)
}

func (handler *Handler[T]) update(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input UpdateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.service.Update(request.Context(), actor, requestutil.ID(request, "id"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, handler.label+" updated", updated)
}

func (handler *Handler[T]) assignRoles(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		Roles []string `json:"roles"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	grants, err := handler.service.AssignRoles(request.Context(), actor, requestutil.ID(request, "id"), input.Roles)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Roles updated", map[string]any{
		"roles":       grants.RoleStrings(),
		"permissions": grants.PermissionStrings(),
		"level":       grants.Level,
	})
}

// # Profile

func (handler *Handler[T]) showProfile(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Get(request.Context(), actor, actor.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Profile retrieved", profile)
}

func (handler *Handler[T]) updateProfile(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input UpdateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.Status = nil

	profile, err := handler.service.Update(request.Context(), actor, actor.ID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Profile updated", profile)
}
