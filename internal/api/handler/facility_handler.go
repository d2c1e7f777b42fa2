package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/facility-system/internal/core/ports"
)

type FacilityHandler struct {
	facilityService ports.FacilityService
}

func NewFacilityHandler(facilityService ports.FacilityService) *FacilityHandler {
	return &FacilityHandler{facilityService: facilityService}
}

type createFacilityRequest struct {
	Name          string `json:"name" validate:"required"`
	StreetAddress string `json:"street_address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	ZipCode       string `json:"zip_code,omitempty"`
	Country       string `json:"country,omitempty"`
	Type          string `json:"facility_type,omitempty"`
	Description   string `json:"description,omitempty"`
}

type updateFacilityRequest struct {
	Name          *string `json:"name,omitempty"`
	StreetAddress *string `json:"street_address,omitempty"`
	City          *string `json:"city,omitempty"`
	State         *string `json:"state,omitempty"`
	ZipCode       *string `json:"zip_code,omitempty"`
	Type          *string `json:"facility_type,omitempty"`
	Description   *string `json:"description,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type tankRequest struct {
	Label            string `json:"label" validate:"required"`
	Product          string `json:"product,omitempty"`
	Status           string `json:"status,omitempty" validate:"omitempty,oneof=active inactive maintenance out_of_service"`
	Size             string `json:"size,omitempty"`
	Material         string `json:"material,omitempty"`
	ReleaseDetection string `json:"release_detection,omitempty"`
	PipingMaterial   string `json:"piping_material,omitempty"`
	Installed        string `json:"installed,omitempty"`
}

func (r tankRequest) toInput() ports.TankInput {
	return ports.TankInput{
		Label:            r.Label,
		Product:          r.Product,
		Status:           r.Status,
		Size:             r.Size,
		Material:         r.Material,
		ReleaseDetection: r.ReleaseDetection,
		PipingMaterial:   r.PipingMaterial,
		Installed:        r.Installed,
	}
}

// Create registers a new facility location.
//
// @Summary      Create facility
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Param        body  body      createFacilityRequest  true  "New facility"
// @Success      201   {object}  domain.Facility
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Security     BearerAuth
// @Router       /facilities [post]
func (h *FacilityHandler) Create(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createFacilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	facility, err := h.facilityService.Create(c.Request().Context(), ports.CreateFacilityInput{
		Name:          req.Name,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		Country:       req.Country,
		Type:          req.Type,
		Description:   req.Description,
		CreatedByID:   userID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, facility)
}

// List returns facilities. ?active=true restricts to active locations.
//
// @Summary      List facilities
// @Tags         facilities
// @Produce      json
// @Param        active  query    bool  false  "Only active facilities"
// @Success      200     {array}  domain.Facility
// @Security     BearerAuth
// @Router       /facilities [get]
func (h *FacilityHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	facilities, err := h.facilityService.List(c.Request().Context(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facilities)
}

// Get returns a facility with its tanks.
//
// @Summary      Get facility
// @Tags         facilities
// @Produce      json
// @Param        id   path      string  true  "Facility id"
// @Success      200  {object}  domain.Facility
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /facilities/{id} [get]
func (h *FacilityHandler) Get(c echo.Context) error {
	facility, err := h.facilityService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facility)
}

// Update applies a partial update to a facility.
//
// @Summary      Update facility
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Facility id"
// @Param        body  body      updateFacilityRequest  true  "Fields to update"
// @Success      200   {object}  domain.Facility
// @Failure      404   {object}  map[string]string
// @Security     BearerAuth
// @Router       /facilities/{id} [patch]
func (h *FacilityHandler) Update(c echo.Context) error {
	var req updateFacilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	facility, err := h.facilityService.Update(c.Request().Context(), c.Param("id"), ports.UpdateFacilityInput{
		Name:          req.Name,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		Type:          req.Type,
		Description:   req.Description,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facility)
}

// Delete removes a facility.
//
// @Summary      Delete facility
// @Tags         facilities
// @Param        id  path  string  true  "Facility id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /facilities/{id} [delete]
func (h *FacilityHandler) Delete(c echo.Context) error {
	if err := h.facilityService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddTank registers a tank at a facility.
//
// @Summary      Add tank
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Facility id"
// @Param        body  body      tankRequest  true  "Tank details"
// @Success      201   {object}  domain.Facility
// @Failure      409   {object}  map[string]string
// @Security     BearerAuth
// @Router       /facilities/{id}/tanks [post]
func (h *FacilityHandler) AddTank(c echo.Context) error {
	var req tankRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	facility, err := h.facilityService.AddTank(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, facility)
}

// UpdateTank modifies an existing tank, addressed by label.
//
// @Summary      Update tank
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Param        id     path      string       true  "Facility id"
// @Param        label  path      string       true  "Tank label"
// @Param        body   body      tankRequest  true  "Tank details"
// @Success      200    {object}  domain.Facility
// @Failure      404    {object}  map[string]string
// @Security     BearerAuth
// @Router       /facilities/{id}/tanks/{label} [put]
func (h *FacilityHandler) UpdateTank(c echo.Context) error {
	var req tankRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	facility, err := h.facilityService.UpdateTank(c.Request().Context(), c.Param("id"), c.Param("label"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facility)
}

// RemoveTank deletes a tank from a facility.
//
// @Summary      Remove tank
// @Tags         facilities
// @Produce      json
// @Param        id     path      string  true  "Facility id"
// @Param        label  path      string  true  "Tank label"
// @Success      200    {object}  domain.Facility
// @Failure      404    {object}  map[string]string
// @Security     BearerAuth
// @Router       /facilities/{id}/tanks/{label} [delete]
func (h *FacilityHandler) RemoveTank(c echo.Context) error {
	facility, err := h.facilityService.RemoveTank(c.Request().Context(), c.Param("id"), c.Param("label"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facility)
}
