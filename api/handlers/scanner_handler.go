package handlers

import (
	"net/http"
	"strconv"

	"example.com/rfidscan/api/middleware"
	"example.com/rfidscan/internal/scanlog"
	"example.com/rfidscan/internal/service"
	"example.com/rfidscan/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// CreateScannerRequest provisions a scanner for an account
type CreateScannerRequest struct {
	Account string `json:"account" validate:"required,account"`
}

// SubmitScanRequest is one tag read posted by a device gateway. ScanTime is
// a pointer so an absent value is rejected while 0 is accepted.
type SubmitScanRequest struct {
	DeviceID uint32  `json:"device_id"`
	ScanTime *uint32 `json:"scan_time" validate:"required"`
	TagUID   string  `json:"tag_uid" validate:"required,tag_uid"`
}

// ScannerHandler handles scanner requests
type ScannerHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewScannerHandler creates a new ScannerHandler instance
func NewScannerHandler(svc service.Service, log *logrus.Logger) *ScannerHandler {
	return &ScannerHandler{
		service: svc,
		log:     log,
	}
}

// CreateScanner registers an empty scan log
func (h *ScannerHandler) CreateScanner(c *gin.Context) {
	var req CreateScannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, NewValidationError("Invalid scanner format"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		writeError(c, h.log, NewValidationError(err.Error()))
		return
	}

	snap, err := h.service.NewScanner(c.Request.Context(), scanlog.Account(req.Account))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, snap)
}

// ListScanners returns the registered accounts
func (h *ScannerHandler) ListScanners(c *gin.Context) {
	accounts := h.service.ListAccounts(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetScanner returns the snapshot of one account's log
func (h *ScannerHandler) GetScanner(c *gin.Context) {
	snap, err := h.service.Query(c.Request.Context(), scanlog.Account(c.Param("account")))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SubmitScan appends a scan on behalf of the authenticated caller
func (h *ScannerHandler) SubmitScan(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		writeError(c, h.log, ErrForbidden)
		return
	}

	var req SubmitScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, NewValidationError("Invalid scan format"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		writeError(c, h.log, NewValidationError(err.Error()))
		return
	}

	event, err := h.service.Submit(c.Request.Context(), caller, service.SubmitRequest{
		Account:  scanlog.Account(c.Param("account")),
		DeviceID: req.DeviceID,
		ScanTime: *req.ScanTime,
		TagUID:   req.TagUID,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// ResetScanner clears the caller's log
func (h *ScannerHandler) ResetScanner(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		writeError(c, h.log, ErrForbidden)
		return
	}

	snap, err := h.service.Reset(c.Request.Context(), caller, scanlog.Account(c.Param("account")))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SearchScans finds indexed scans of a tag, including ones already evicted
// from the log
func (h *ScannerHandler) SearchScans(c *gin.Context) {
	tagUID := c.Query("tag_uid")
	if tagUID == "" {
		writeError(c, h.log, NewValidationError("tag_uid is required"))
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, h.log, NewValidationError("limit must be a positive integer"))
			return
		}
		if n > maxSearchLimit {
			n = maxSearchLimit
		}
		limit = n
	}

	docs, err := h.service.SearchScans(c.Request.Context(), scanlog.Account(c.Param("account")), tagUID, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": docs,
		"count":   len(docs),
	})
}

// Version reports the build version and registry size
func (h *ScannerHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Version())
}
