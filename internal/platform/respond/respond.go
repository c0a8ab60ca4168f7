// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Envelope
//
// Every JSON response, success or failure, uses the same shape:
//
//	{ "success", "message", "timestamp", "status_code", "data"?, "pagination"?, "errors"? }
//
// Paginated responses add the pagination block. Error responses carry a
// machine-readable code plus field details; in non-production environments the
// cause of an unexpected failure is added as "detail".
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/ctxutil"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// Envelope is the JSON envelope of every API response.
type Envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Timestamp  time.Time        `json:"timestamp"`
	StatusCode int              `json:"status_code"`
	Data       any              `json:"data,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
	Errors     *ErrorBody       `json:"errors,omitempty"`
}

// ErrorBody is the "errors" member of a failed response.
type ErrorBody struct {
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// JSON writes payload with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

func success(statusCode int, message string, data any) Envelope {
	return Envelope{
		Success:    true,
		Message:    message,
		Timestamp:  time.Now().UTC(),
		StatusCode: statusCode,
		Data:       data,
	}
}

// OK writes a 200 response with data in the success envelope.
func OK(writer http.ResponseWriter, message string, data any) {
	JSON(writer, http.StatusOK, success(http.StatusOK, message, data))
}

// Created writes a 201 response with data in the success envelope.
func Created(writer http.ResponseWriter, message string, data any) {
	JSON(writer, http.StatusCreated, success(http.StatusCreated, message, data))
}

// Paginated writes a 200 response with one page of items and its metadata.
func Paginated(writer http.ResponseWriter, message string, items any, meta pagination.Meta) {
	envelope := success(http.StatusOK, message, items)
	envelope.Pagination = &meta
	JSON(writer, http.StatusOK, envelope)
}

// Status writes a success envelope with an explicit status code.
func Status(writer http.ResponseWriter, statusCode int, message string, data any) {
	JSON(writer, statusCode, success(statusCode, message, data))
}

// File writes a downloadable attachment.
func File(writer http.ResponseWriter, filename, contentType string, body []byte) {
	header := writer.Header()
	header.Set("Content-Type", contentType)
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	header.Set("Content-Length", strconv.Itoa(len(body)))
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write(body)
}

// Error converts any Go error into the failure envelope.
//
// Unexpected errors are logged with request and actor context before the
// message is sanitised. The cause text is only echoed when the request
// context allows it (non-production).
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	ctx := request.Context()

	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		appError = apperr.Internal(err)
	}

	body := &ErrorBody{Code: appError.Code, Details: appError.Details}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		attrs := []any{
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.String("method", request.Method),
			slog.String("path", request.URL.Path),
			slog.Any("cause", appError.Cause),
		}
		if session := ctxutil.GetSession(ctx); session != nil {
			attrs = append(attrs,
				slog.String("actor_id", session.PrincipalID),
				slog.String("guard", session.GuardType),
			)
		}
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "api_server_error", attrs...)

		if ctxutil.ExposeErrors(ctx) && appError.Cause != nil {
			body.Detail = appError.Cause.Error()
		}
	}

	JSON(writer, appError.HTTPStatus, Envelope{
		Success:    false,
		Message:    appError.Message,
		Timestamp:  time.Now().UTC(),
		StatusCode: appError.HTTPStatus,
		Errors:     body,
	})
}
