// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package membership

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/backoffice/internal/platform/request"
	"github.com/taibuivan/backoffice/internal/platform/resource"
	"github.com/taibuivan/backoffice/internal/platform/respond"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// Handler implements the package endpoints.
type Handler struct {
	service *Service
	shared  *resource.Routes[*Package]
	paging  pagination.Policy
}

// NewHandler creates a new instance of [Handler].
func NewHandler(service *Service, paging pagination.Policy) *Handler {
	return &Handler{
		service: service,
		shared:  resource.NewRoutes[*Package](service, "Package", paging),
		paging:  paging,
	}
}

// RegisterRoutes mounts the management endpoints on an authenticated admin router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	handler.shared.Register(router)

	router.Post("/", handler.create)
	router.Patch("/{id}", handler.update)
}

// RegisterCatalogRoutes mounts the read-only catalog for members.
func (handler *Handler) RegisterCatalogRoutes(router chi.Router) {
	router.Get("/", handler.catalog)
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
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
	respond.Created(writer, "Package created", created)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
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
	respond.OK(writer, "Package updated", updated)
}

func (handler *Handler) catalog(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := handler.service.Catalog(request.Context(), actor, requestutil.ListQuery(request, handler.paging))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, "Package catalog retrieved", page.Items, page.Meta)
}
