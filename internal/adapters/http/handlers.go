package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/app/hub"
	"github.com/zonecast/synchub/internal/app/orch"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

type handlers struct {
	handle hub.Handle
	orch   *orch.Orchestrator
}

type errorResponse struct {
	Error string `json:"error"`
}

func fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func failFor(c *gin.Context, err error) {
	fail(c, orch.StatusFor(err), err)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms, err := h.handle.ListRooms(c.Request.Context())
	if err != nil {
		fail(c, http.StatusServiceUnavailable, err)
		return
	}
	if rooms == nil {
		rooms = []domain.RoomName{}
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *handlers) listSessions(c *gin.Context) {
	sessions, err := h.orch.Sessions(c.Request.Context())
	if err != nil {
		failFor(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *handlers) listConnections(c *gin.Context) {
	conns, err := h.orch.Connections(c.Request.Context())
	if err != nil {
		failFor(c, err)
		return
	}
	c.JSON(http.StatusOK, conns)
}

func (h *handlers) listAudioZones(c *gin.Context) {
	zones, err := h.orch.AudioZonesWithSessions(c.Request.Context())
	if err != nil {
		failFor(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

// updateSession applies a REST update. There is no originating socket, so
// every client receives SessionUpdated and no player actions run.
func (h *handlers) updateSession(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var update domain.UpdateSession
	if err := c.ShouldBindJSON(&update); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	update.SessionID = id

	if err := h.orch.UpdateSession(c.Request.Context(), nil, update); err != nil {
		failFor(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *handlers) createAudioZone(c *gin.Context) {
	var in domain.CreateAudioZone
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	zone, err := h.orch.CreateAudioZone(c.Request.Context(), in)
	if err != nil {
		failFor(c, err)
		return
	}
	c.JSON(http.StatusCreated, zone)
}

func (h *handlers) updateAudioZone(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in domain.UpdateAudioZone
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	in.ID = id

	zone, err := h.orch.UpdateAudioZone(c.Request.Context(), in)
	if err != nil {
		failFor(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

func (h *handlers) deleteAudioZone(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.orch.DeleteAudioZone(c.Request.Context(), id); err != nil {
		failFor(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var eventTypes = map[string]protocol.OutboundType{
	"scan":     protocol.OutScanEvent,
	"download": protocol.OutDownloadEvent,
}

// postEvent relays an arbitrary JSON event body to every connected client.
func (h *handlers) postEvent(c *gin.Context) {
	t, ok := eventTypes[c.Param("kind")]
	if !ok {
		fail(c, http.StatusNotFound, errors.New("unknown event kind"))
		return
	}
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		fail(c, http.StatusBadRequest, errors.New("event body must be JSON"))
		return
	}
	data, err := protocol.Encode(t, json.RawMessage(body))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := h.handle.Broadcast(c.Request.Context(), data); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("event", string(t)).Msg("event broadcast")
	}
	c.Status(http.StatusAccepted)
}
