package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/briefs-backend/internal/http/response"
	"github.com/yungbote/briefs-backend/internal/services"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

type ReconcileHandler struct {
	svc services.ReconcileService
}

func NewReconcileHandler(svc services.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{svc: svc}
}

// POST /api/admin/reconcile[?dry_run=true]
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	dryRun, err := queryBool(c, "dry_run")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	sum, err := h.svc.Reconcile(c.Request.Context(), services.ReconcileOptions{DryRun: dryRun})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}

// GET /api/admin/check
func (h *ReconcileHandler) Check(c *gin.Context) {
	vs, err := h.svc.Check(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if vs == nil {
		vs = []versioning.Violation{}
	}
	response.RespondOK(c, gin.H{"consistent": len(vs) == 0, "violations": vs})
}
