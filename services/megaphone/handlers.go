// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package megaphone

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/catalog"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/selector"
)

// Handlers holds the HTTP handlers for the megaphone API.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates handlers over the service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc, logger: svc.logger}
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one,
// echoing it on the response for correlation.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// HandleNext handles GET /v1/megaphones/next.
//
// Returns the single megaphone to show now, or a null megaphone when the
// active list is empty or fully snoozed.
func (h *Handlers) HandleNext(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleNext"))

	next, err := h.svc.Next(c.Request.Context())
	if err != nil {
		logger.Error("next megaphone query failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "QUERY_FAILED"})
		return
	}

	resp := NextResponse{}
	if next != nil {
		view := newMegaphoneView(*next, h.svc.clock())
		resp.Megaphone = &view
		logger.Info("megaphone selected", slog.String("id", view.ID), slog.String("priority", view.Priority))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleList handles GET /v1/megaphones.
//
// Returns every active (incomplete, unexpired) megaphone in display
// order, snoozed entries included.
func (h *Handlers) HandleList(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleList"))

	list, err := h.svc.Incomplete(c.Request.Context())
	if err != nil {
		logger.Error("active list query failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "QUERY_FAILED"})
		return
	}

	now := h.svc.clock()
	views := make([]MegaphoneView, len(list))
	for i, candidate := range list {
		views[i] = newMegaphoneView(candidate, now)
	}
	c.JSON(http.StatusOK, ListResponse{Megaphones: views})
}

// HandleStatus handles GET /v1/megaphones/:id.
func (h *Handlers) HandleStatus(c *gin.Context) {
	getOrCreateRequestID(c)
	id := catalog.ID(c.Param("id"))

	if _, ok := catalog.Lookup(id); !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown megaphone id", Code: "UNKNOWN_MEGAPHONE"})
		return
	}

	incomplete, unsnoozed, err := h.svc.Status(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "QUERY_FAILED"})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{ID: string(id), Incomplete: incomplete, Unsnoozed: unsnoozed})
}

// mutate runs one of the state transitions and maps its errors.
func (h *Handlers) mutate(c *gin.Context, name string, fn func(catalog.ID) error) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", name))
	id := catalog.ID(c.Param("id"))

	if err := fn(id); err != nil {
		if errors.Is(err, selector.ErrUnknownMegaphone) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "UNKNOWN_MEGAPHONE"})
			return
		}
		logger.Error("mutation failed", slog.String("id", string(id)), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "MUTATION_FAILED"})
		return
	}

	logger.Info("megaphone state updated", slog.String("id", string(id)))
	c.Status(http.StatusNoContent)
}

// HandleViewed handles POST /v1/megaphones/:id/view.
func (h *Handlers) HandleViewed(c *gin.Context) {
	h.mutate(c, "HandleViewed", func(id catalog.ID) error {
		return h.svc.MarkViewed(c.Request.Context(), id)
	})
}

// HandleSnoozed handles POST /v1/megaphones/:id/snooze.
func (h *Handlers) HandleSnoozed(c *gin.Context) {
	h.mutate(c, "HandleSnoozed", func(id catalog.ID) error {
		return h.svc.MarkSnoozed(c.Request.Context(), id)
	})
}

// HandleCompleted handles POST /v1/megaphones/:id/complete.
func (h *Handlers) HandleCompleted(c *gin.Context) {
	h.mutate(c, "HandleCompleted", func(id catalog.ID) error {
		return h.svc.MarkComplete(c.Request.Context(), id)
	})
}

// HandleNewUserDefaults handles POST /v1/account/new-user-defaults.
//
// Completes every skip-on-new-user megaphone; invoked once at account
// creation.
func (h *Handlers) HandleNewUserDefaults(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleNewUserDefaults"))

	if err := h.svc.CompleteNewUserDefaults(c.Request.Context()); err != nil {
		logger.Error("new-user defaults failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "MUTATION_FAILED"})
		return
	}
	logger.Info("new-user megaphone defaults applied")
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
