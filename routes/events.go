package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub/apperr"
	"eventhub/middlewares"
	"eventhub/models"
	"eventhub/services"
)

/* -------------------- Events -------------------- */

// GET /api/events
func (d *deps) getEvents(c *gin.Context) {
	events, err := d.query.ListFutureEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	// the cached copy must not outlive the earliest event's start
	if until, ok := d.query.UntilFirstStarts(events); ok {
		middlewares.CacheFor(c, until)
	}
	c.JSON(http.StatusOK, events)
}

// GET /api/events/:eventId
func (d *deps) getEvent(c *gin.Context) {
	event, err := d.query.GetEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// POST /api/events
func (d *deps) createEvent(c *gin.Context) {
	var in services.CreateEventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, apperr.Validation("Could not parse request data."))
		return
	}

	event, err := d.coord.CreateEvent(c.Request.Context(), in, middlewares.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	d.inv.PurgeEvent(c.Request.Context(), event.ID)
	c.JSON(http.StatusCreated, event)
}

/* --------------- Registrations ------------------ */

// POST /api/events/:eventId/register
func (d *deps) registerForEvent(c *gin.Context) {
	event, err := d.coord.Register(c.Request.Context(), c.Param("eventId"), middlewares.UserID(c))
	d.respondMutation(c, event, "Registered successfully.", err)
}

// DELETE /api/events/:eventId/cancel/:userId
func (d *deps) cancelRegistration(c *gin.Context) {
	event, err := d.coord.Cancel(c.Request.Context(), c.Param("eventId"), c.Param("userId"), middlewares.UserID(c))
	d.respondMutation(c, event, "Registration cancelled.", err)
}

// respondMutation renders a register/cancel result. A partial failure is a
// success with a warning because the event side is already committed.
func (d *deps) respondMutation(c *gin.Context, event models.Event, message string, err error) {
	var pf *apperr.PartialFailureError
	if err != nil && !errors.As(err, &pf) {
		respondError(c, err)
		return
	}

	d.inv.PurgeEvent(c.Request.Context(), event.ID)

	body := gin.H{"message": message, "event": event}
	if pf != nil {
		_ = c.Error(err)
		reconcile := "pending"
		if pf.Queued {
			reconcile = "queued"
		}
		body["warning"] = gin.H{
			"code":      apperr.CodePartialFailure,
			"message":   apperr.PublicMessage(pf),
			"reconcile": reconcile,
		}
	}
	c.JSON(http.StatusOK, body)
}

/* --------------------- Users -------------------- */

// GET /api/users/:userId/events
func (d *deps) getUserEvents(c *gin.Context) {
	events, err := d.query.ListUserFutureEvents(c.Request.Context(), c.Param("userId"), middlewares.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
