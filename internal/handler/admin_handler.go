package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/internal/service"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	adminService  *service.AdminService
	deviceService *service.DeviceService
}

func NewAdminHandler(adminService *service.AdminService, deviceService *service.DeviceService) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		deviceService: deviceService,
	}
}

// Login godoc
// @Summary Operator login
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body model.AdminLoginRequest true "Credentials"
// @Success 200 {object} model.AdminLoginResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req model.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	resp, err := h.adminService.Login(req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Revoke the current token
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} model.SuccessResponse
// @Router /admin/logout [post]
func (h *AdminHandler) Logout(c *gin.Context) {
	if err := h.adminService.Logout(c.Request.Context(), c.GetString("token")); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to logout", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Logged out"})
}

// ListDevices godoc
// @Summary List registered devices
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} model.DeviceResponse
// @Router /admin/devices [get]
func (h *AdminHandler) ListDevices(c *gin.Context) {
	devices, err := h.deviceService.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}

// ProvisionDevice godoc
// @Summary Register a device ahead of its first reading
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body model.ProvisionDeviceRequest true "Device"
// @Success 201 {object} model.DeviceResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /admin/devices [post]
func (h *AdminHandler) ProvisionDevice(c *gin.Context) {
	var req model.ProvisionDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	device, err := h.deviceService.Provision(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, device)
}

// UpdateDevice godoc
// @Summary Update name, geometry or location
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param uid path string true "Device UID"
// @Param body body model.UpdateDeviceRequest true "Profile fields"
// @Success 200 {object} model.DeviceResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /admin/devices/{uid} [patch]
func (h *AdminHandler) UpdateDevice(c *gin.Context) {
	var req model.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	device, err := h.deviceService.UpdateProfile(c.Request.Context(), c.Param("uid"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// RefreshDevice godoc
// @Summary Reconcile the device's live message now
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param uid path string true "Device UID"
// @Success 200 {object} model.StatusEvent
// @Failure 404 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /admin/devices/{uid}/refresh [post]
func (h *AdminHandler) RefreshDevice(c *gin.Context) {
	event, err := h.deviceService.RefreshNow(c.Request.Context(), c.Param("uid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ExportDevice godoc
// @Summary Export measurements as CSV to object storage
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param uid path string true "Device UID"
// @Param from query string false "RFC3339 lower bound (inclusive)"
// @Param to query string false "RFC3339 upper bound (exclusive)"
// @Success 200 {object} model.ExportResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /admin/devices/{uid}/export [post]
func (h *AdminHandler) ExportDevice(c *gin.Context) {
	var req model.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if !req.From.IsZero() && !req.To.IsZero() && !req.To.After(req.From) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: "to must be after from"})
		return
	}

	resp, err := h.deviceService.Export(c.Request.Context(), c.Param("uid"), req.From, req.To)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
