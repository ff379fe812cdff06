package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/http/response"
	"github.com/yungbote/briefs-backend/internal/pkg/apierr"
	"github.com/yungbote/briefs-backend/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type BriefHandler struct {
	svc services.BriefVersionService
}

func NewBriefHandler(svc services.BriefVersionService) *BriefHandler {
	return &BriefHandler{svc: svc}
}

type contentRequest struct {
	AuthorID string          `json:"author_id"`
	Category string          `json:"category"`
	Title    string          `json:"title"`
	Summary  string          `json:"summary"`
	Body     string          `json:"body"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (r contentRequest) toContent() *briefs.Content {
	return &briefs.Content{
		AuthorID: r.AuthorID,
		Category: r.Category,
		Title:    r.Title,
		Summary:  r.Summary,
		Body:     r.Body,
		Metadata: []byte(r.Metadata),
	}
}

// POST /api/briefs
func (h *BriefHandler) CreateBrief(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.svc.CreateVersion(c.Request.Context(), services.CreateVersionInput{Content: req.toContent()})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"brief": v})
}

// POST /api/briefs/:id/versions
// An empty body copies the parent's content.
func (h *BriefHandler) CreateRevision(c *gin.Context) {
	parentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	in := services.CreateVersionInput{ParentID: &parentID}
	var req contentRequest
	switch err := c.ShouldBindJSON(&req); {
	case errors.Is(err, io.EOF):
	case err != nil:
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	default:
		in.Content = req.toContent()
	}
	v, err := h.svc.CreateVersion(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"brief": v})
}

// POST /api/briefs/:id/publish[?activate=true]
func (h *BriefHandler) Publish(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	activate, err := queryBool(c, "activate")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var v *briefs.BriefVersion
	if activate {
		v, err = h.svc.PublishAndActivate(c.Request.Context(), id)
	} else {
		v, err = h.svc.Publish(c.Request.Context(), id)
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"brief": v})
}

// POST /api/briefs/:id/activate
func (h *BriefHandler) Activate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Activate(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"brief": v})
}

// POST /api/briefs/:id/deactivate
func (h *BriefHandler) Deactivate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Deactivate(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"brief": v})
}

// GET /api/briefs
func (h *BriefHandler) ListCanonical(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	// queryInt has already rejected negatives.
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	filter := briefs.CanonicalFilter{
		AuthorID: strings.TrimSpace(c.Query("author_id")),
		Category: strings.TrimSpace(c.Query("category")),
		Limit:    limit,
		Offset:   offset,
	}
	rows, err := h.svc.ListCanonical(c.Request.Context(), filter)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if rows == nil {
		rows = []*briefs.BriefVersion{}
	}
	response.RespondOK(c, gin.H{"briefs": rows, "limit": limit, "offset": offset})
}

// GET /api/briefs/:id
func (h *BriefHandler) GetVersion(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.GetVersion(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"brief": v})
}

// GET /api/families/:root_id/history
func (h *BriefHandler) FamilyHistory(c *gin.Context) {
	rootID, ok := pathUUID(c, "root_id")
	if !ok {
		return
	}
	rows, err := h.svc.ListFamilyHistory(c.Request.Context(), rootID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"root_id": rootID, "versions": rows})
}

// GET /api/families/:root_id/canonical
func (h *BriefHandler) FamilyCanonical(c *gin.Context) {
	rootID, ok := pathUUID(c, "root_id")
	if !ok {
		return
	}
	v, err := h.svc.GetCanonical(c.Request.Context(), rootID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"brief": v})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.BadRequest("invalid_query", "invalid %s", key)
	}
	return n, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apierr.BadRequest("invalid_query", "invalid %s", key)
	}
	return b, nil
}
