// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package megaphone

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the megaphone API with the router group.
//
// Endpoints:
//
//	GET  /v1/megaphones/next          - The megaphone to show now (or null)
//	GET  /v1/megaphones               - All active megaphones, ordered
//	GET  /v1/megaphones/:id           - Incomplete/unsnoozed status of one id
//	POST /v1/megaphones/:id/view      - Record the first presentation
//	POST /v1/megaphones/:id/snooze    - Defer for the catalog cooldown
//	POST /v1/megaphones/:id/complete  - Finish permanently
//	POST /v1/account/new-user-defaults - Complete skip-on-new-user megaphones
//	GET  /v1/health                   - Liveness
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/megaphones/next", h.HandleNext)
	rg.GET("/megaphones", h.HandleList)
	rg.GET("/megaphones/:id", h.HandleStatus)
	rg.POST("/megaphones/:id/view", h.HandleViewed)
	rg.POST("/megaphones/:id/snooze", h.HandleSnoozed)
	rg.POST("/megaphones/:id/complete", h.HandleCompleted)
	rg.POST("/account/new-user-defaults", h.HandleNewUserDefaults)
	rg.GET("/health", h.HandleHealth)
}
