// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package resource mounts the HTTP routes every managed resource shares.

A resource package provides its own create and update endpoints (their
payloads differ per type) and delegates listing, trash handling, bulk
actions and export to [Routes].
*/
package resource

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/backoffice/internal/access/policy"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	requestutil "github.com/taibuivan/backoffice/internal/platform/request"
	"github.com/taibuivan/backoffice/internal/platform/respond"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// BulkInput is the payload of POST /bulk.
type BulkInput struct {
	Action string         `json:"action" validate:"required,oneof=delete update activate deactivate"`
	IDs    []string       `json:"ids" validate:"required,min=1,max=500,dive,required"`
	Data   map[string]any `json:"data"`
}

// Service is the part of a resource service the shared routes need.
type Service[T any] interface {
	List(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[T], error)
	ListTrashed(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[T], error)
	Get(ctx context.Context, actor policy.Actor, id string) (T, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
	Restore(ctx context.Context, actor policy.Actor, id string) (T, error)
	ForceDelete(ctx context.Context, actor policy.Actor, id string) error
	Bulk(ctx context.Context, actor policy.Actor, input BulkInput) (*repository.BulkReport, error)
	Export(ctx context.Context, actor policy.Actor, filters repository.Filters, format repository.Format) (*repository.Export, error)
}

// Routes serves the shared endpoints of one resource.
type Routes[T any] struct {
	service Service[T]
	label   string
	paging  pagination.Policy
}

// NewRoutes binds a service; label is the singular name used in messages ("User").
func NewRoutes[T any](service Service[T], label string, paging pagination.Policy) *Routes[T] {
	return &Routes[T]{service: service, label: label, paging: paging}
}

/*
Register mounts the shared endpoints. Static paths come first so that
"/trashed" and "/export" never match "/{id}".

	GET    /                 list
	GET    /trashed          list soft-deleted
	GET    /export?format=   export
	POST   /bulk             bulk action
	GET    /{id}             show
	DELETE /{id}             delete (soft when supported)
	POST   /{id}/restore     restore
	DELETE /{id}/force       force delete
*/
func (routes *Routes[T]) Register(router chi.Router) {
	router.Get("/", routes.list)
	router.Get("/trashed", routes.trashed)
	router.Get("/export", routes.export)
	router.Post("/bulk", routes.bulk)
	router.Get("/{id}", routes.show)
	router.Delete("/{id}", routes.delete)
	router.Post("/{id}/restore", routes.restore)
	router.Delete("/{id}/force", routes.forceDelete)
}

func (routes *Routes[T]) list(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := routes.service.List(request.Context(), actor, requestutil.ListQuery(request, routes.paging))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, routes.label+" list retrieved", page.Items, page.Meta)
}

func (routes *Routes[T]) trashed(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := routes.service.ListTrashed(request.Context(), actor, requestutil.ListQuery(request, routes.paging))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, "Trashed "+routes.label+" list retrieved", page.Items, page.Meta)
}

func (routes *Routes[T]) export(writer http.ResponseWriter, request *http.Request) {
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

	export, err := routes.service.Export(request.Context(), actor, requestutil.Filters(request), format)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.File(writer, export.Filename, export.ContentType, export.Body)
}

func (routes *Routes[T]) bulk(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input BulkInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	report, err := routes.service.Bulk(request.Context(), actor, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, "Bulk "+input.Action+" completed", report)
}

func (routes *Routes[T]) show(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	entity, err := routes.service.Get(request.Context(), actor, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, routes.label+" retrieved", entity)
}

func (routes *Routes[T]) delete(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := routes.service.Delete(request.Context(), actor, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, routes.label+" deleted", nil)
}

func (routes *Routes[T]) restore(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	entity, err := routes.service.Restore(request.Context(), actor, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, routes.label+" restored", entity)
}

func (routes *Routes[T]) forceDelete(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.Actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := routes.service.ForceDelete(request.Context(), actor, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, routes.label+" permanently deleted", nil)
}
