package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facilityops/facility-system/internal/core/ports"
)

type PermitHandler struct {
	permitService ports.PermitService
}

func NewPermitHandler(permitService ports.PermitService) *PermitHandler {
	return &PermitHandler{permitService: permitService}
}

// List returns permits with their derived statuses.
//
// @Summary      List permits
// @Tags         permits
// @Produce      json
// @Param        facility_id  query    string  false  "Filter by facility"
// @Param        status       query    string  false  "Filter by derived status"  Enums(all, active, expiring, expired, superseded)
// @Success      200          {array}  permitResponse
// @Security     BearerAuth
// @Router       /permits [get]
func (h *PermitHandler) List(c echo.Context) error {
	permits, err := h.permitService.List(c.Request().Context(), ports.ListPermitsFilter{
		FacilityID: c.QueryParam("facility_id"),
		Status:     c.QueryParam("status"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPermitResponses(permits, time.Now().UTC()))
}

// Get returns a single permit.
//
// @Summary      Get permit
// @Tags         permits
// @Produce      json
// @Param        id   path      string  true  "Permit id"
// @Success      200  {object}  permitResponse
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /permits/{id} [get]
func (h *PermitHandler) Get(c echo.Context) error {
	permit, err := h.permitService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPermitResponse(permit, time.Now().UTC()))
}

// Upload creates a permit from a multipart form, optionally with a document.
//
// @Summary      Upload permit
// @Tags         permits
// @Accept       multipart/form-data
// @Produce      json
// @Param        name         formData  string  true   "Permit name"
// @Param        number       formData  string  true   "Permit number"
// @Param        expiry_date  formData  string  true   "Expiry date (YYYY-MM-DD)"
// @Param        issue_date   formData  string  false  "Issue date (YYYY-MM-DD)"
// @Param        issued_by    formData  string  false  "Issuing authority"
// @Param        renewal_url  formData  string  false  "Renewal portal URL"
// @Param        facility_id  formData  string  true   "Facility id"
// @Param        document     formData  file    false  "Permit document"
// @Success      201  {object}  permitResponse
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /permits [post]
func (h *PermitHandler) Upload(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	in := ports.UploadPermitInput{
		Name:       c.FormValue("name"),
		Number:     c.FormValue("number"),
		IssueDate:  c.FormValue("issue_date"),
		ExpiryDate: c.FormValue("expiry_date"),
		IssuedBy:   c.FormValue("issued_by"),
		RenewalURL: c.FormValue("renewal_url"),
		FacilityID: c.FormValue("facility_id"),
		UserID:     userID,
	}

	doc, filename, closeDoc, err := formFile(c, "document")
	if err != nil {
		return err
	}
	if closeDoc != nil {
		defer closeDoc()
	}
	in.Document = doc
	in.Filename = filename

	permit, err := h.permitService.Upload(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPermitResponse(permit, time.Now().UTC()))
}

// Renew supersedes a permit with a new one carrying updated dates.
//
// @Summary      Renew permit
// @Tags         permits
// @Accept       multipart/form-data
// @Produce      json
// @Param        id           path      string  true   "Permit id to supersede"
// @Param        number       formData  string  false  "New permit number"
// @Param        expiry_date  formData  string  true   "New expiry date (YYYY-MM-DD)"
// @Param        issue_date   formData  string  false  "New issue date (YYYY-MM-DD)"
// @Param        issued_by    formData  string  false  "Issuing authority"
// @Param        document     formData  file    false  "Renewal document"
// @Success      201  {object}  permitResponse
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /permits/{id}/renew [post]
func (h *PermitHandler) Renew(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	in := ports.RenewPermitInput{
		PermitID:   c.Param("id"),
		Number:     c.FormValue("number"),
		IssueDate:  c.FormValue("issue_date"),
		ExpiryDate: c.FormValue("expiry_date"),
		IssuedBy:   c.FormValue("issued_by"),
		UserID:     userID,
	}

	doc, filename, closeDoc, err := formFile(c, "document")
	if err != nil {
		return err
	}
	if closeDoc != nil {
		defer closeDoc()
	}
	in.Document = doc
	in.Filename = filename

	permit, err := h.permitService.Renew(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPermitResponse(permit, time.Now().UTC()))
}

// Delete permanently removes a permit.
//
// @Summary      Delete permit
// @Tags         permits
// @Param        id  path  string  true  "Permit id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /permits/{id} [delete]
func (h *PermitHandler) Delete(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if err := h.permitService.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// History returns the audit trail for a permit, newest first.
//
// @Summary      Permit history
// @Tags         permits
// @Produce      json
// @Param        id   path     string  true  "Permit id"
// @Success      200  {array}  domain.PermitHistoryEntry
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /permits/{id}/history [get]
func (h *PermitHandler) History(c echo.Context) error {
	entries, err := h.permitService.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// Stats returns dashboard counters over derived statuses.
//
// @Summary      Permit statistics
// @Tags         permits
// @Produce      json
// @Param        facility_id  query     string  false  "Restrict to facility"
// @Success      200          {object}  domain.PermitStats
// @Security     BearerAuth
// @Router       /permits/stats [get]
func (h *PermitHandler) Stats(c echo.Context) error {
	stats, err := h.permitService.Stats(c.Request().Context(), c.QueryParam("facility_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// formFile opens an optional multipart file field. A missing field is not an
// error; the returned reader is nil in that case.
func formFile(c echo.Context, field string) (io.Reader, string, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable document upload")
	}
	return f, fh.Filename, func() { _ = f.Close() }, nil
}
