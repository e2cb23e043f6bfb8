package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterJobRoutes registers the job lifecycle routes.
func RegisterJobRoutes(r *gin.Engine, manager *Manager) {
	ctl := &jobsController{manager: manager}
	r.POST("/api/jobs", ctl.submit)
	r.GET("/api/jobs", ctl.list)
	r.GET("/api/jobs/:id", ctl.get)
	r.POST("/api/jobs/:id/confirm", ctl.confirm)
	r.POST("/api/jobs/:id/stop", ctl.stop)
	r.GET("/api/history", ctl.history)
}

type jobsController struct {
	manager *Manager
}

type submitRequest struct {
	URL         string `json:"url" binding:"required"`
	Focus       string `json:"focus"`
	AutoConfirm bool   `json:"auto_confirm"`
}

// submit starts (or resumes) a job for an article URL.
// POST /api/jobs
func (ctl *jobsController) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := ctl.manager.Submit(c.Request.Context(), req.URL, req.Focus, req.AutoConfirm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job.View())
}

// list returns every known job.
// GET /api/jobs
func (ctl *jobsController) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": ctl.manager.List()})
}

// get returns one job including a pending confirmation gate, if any.
// GET /api/jobs/:id
func (ctl *jobsController) get(c *gin.Context) {
	job, ok := ctl.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such job"})
		return
	}
	c.JSON(http.StatusOK, job.View())
}

type confirmRequest struct {
	Approve bool `json:"approve"`
}

// confirm answers a job's pending gate.
// POST /api/jobs/:id/confirm
func (ctl *jobsController) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ctl.manager.Confirm(c.Param("id"), req.Approve); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "answered", "approved": req.Approve})
}

// stop halts a job before its next stage. The checkpoint survives, so
// the job can be resubmitted later and resume.
// POST /api/jobs/:id/stop
func (ctl *jobsController) stop(c *gin.Context) {
	if err := ctl.manager.Stop(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}

// history lists completed runs from the history store.
// GET /api/history
func (ctl *jobsController) history(c *gin.Context) {
	store := ctl.manager.factory.History()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store not configured"})
		return
	}
	records, err := store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}
