package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "timesheet/backend/internal/errors"
	"timesheet/backend/internal/model"
	"timesheet/backend/internal/service"
)

type TimesheetHandler struct {
	timesheetService *service.TimesheetService
	exportService    *service.ExportService
}

type allowanceRequest struct {
	AllowanceCount *float64 `json:"allowanceCount"`
}

type nightStayRequest struct {
	IsNightStay *bool `json:"isNightStay"`
}

type vacationRequest struct {
	VacationType string `json:"vacationType"`
}

// intervalRequest replaces both endpoints; an empty string clears one.
type intervalRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func NewTimesheetHandler(timesheetService *service.TimesheetService, exportService *service.ExportService) *TimesheetHandler {
	return &TimesheetHandler{timesheetService: timesheetService, exportService: exportService}
}

func (h *TimesheetHandler) GetRates(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	rates, apiErr := h.timesheetService.Rates(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

func (h *TimesheetHandler) UpdateRates(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var patch model.RatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidJSON(c)
		return
	}
	rates, apiErr := h.timesheetService.UpdateRates(c.Request.Context(), userID, patch)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

func (h *TimesheetHandler) GetDay(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	h.writeDay(c, http.StatusOK)(h.timesheetService.Day(c.Request.Context(), userID, c.Param("date")))
}

func (h *TimesheetHandler) ReplaceDay(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var rec model.DayRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		writeInvalidJSON(c)
		return
	}
	h.writeDay(c, http.StatusOK)(h.timesheetService.ReplaceDay(c.Request.Context(), userID, c.Param("date"), rec))
}

func (h *TimesheetHandler) ClearDay(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if _, apiErr := h.timesheetService.ClearDay(c.Request.Context(), userID, c.Param("date")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TimesheetHandler) AddInterval(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	entry, added, apiErr := h.timesheetService.AddInterval(c.Request.Context(), userID, c.Param("date"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"day": entry, "interval": added})
}

func (h *TimesheetHandler) UpdateInterval(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	h.writeDay(c, http.StatusOK)(h.timesheetService.UpdateInterval(
		c.Request.Context(), userID, c.Param("date"), c.Param("id"), req.StartTime, req.EndTime,
	))
}

func (h *TimesheetHandler) RemoveInterval(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	h.writeDay(c, http.StatusOK)(h.timesheetService.RemoveInterval(c.Request.Context(), userID, c.Param("date"), c.Param("id")))
}

func (h *TimesheetHandler) SetAllowance(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req allowanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AllowanceCount == nil {
		writeInvalidJSON(c)
		return
	}
	h.writeDay(c, http.StatusOK)(h.timesheetService.SetAllowanceCount(c.Request.Context(), userID, c.Param("date"), *req.AllowanceCount))
}

func (h *TimesheetHandler) SetNightStay(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req nightStayRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsNightStay == nil {
		writeInvalidJSON(c)
		return
	}
	h.writeDay(c, http.StatusOK)(h.timesheetService.SetNightStay(c.Request.Context(), userID, c.Param("date"), *req.IsNightStay))
}

func (h *TimesheetHandler) SetVacation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req vacationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	h.writeDay(c, http.StatusOK)(h.timesheetService.SetVacationType(c.Request.Context(), userID, c.Param("date"), req.VacationType))
}

func (h *TimesheetHandler) GetMonth(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(c)
	if !ok {
		return
	}
	result, apiErr := h.timesheetService.Month(c.Request.Context(), userID, year, month)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TimesheetHandler) RefreshMonth(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(c)
	if !ok {
		return
	}
	result, apiErr := h.timesheetService.RefreshMonth(c.Request.Context(), userID, year, month)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TimesheetHandler) ExportMonthCSV(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(c)
	if !ok {
		return
	}
	data, apiErr := h.exportService.MonthCSV(c.Request.Context(), userID, year, month)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	filename := fmt.Sprintf("timesheet-%04d-%02d.csv", year, int(month))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *TimesheetHandler) GetYearVacations(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	year, ok := yearParam(c)
	if !ok {
		return
	}
	stats, apiErr := h.timesheetService.YearVacations(c.Request.Context(), userID, year)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *TimesheetHandler) ExportVacationsICS(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	year, ok := yearParam(c)
	if !ok {
		return
	}
	data, apiErr := h.exportService.VacationsICS(c.Request.Context(), userID, year)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="vacations-`+strconv.Itoa(year)+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

func (h *TimesheetHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if apiErr := h.timesheetService.Sync(c.Request.Context(), userID); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "synced"})
}

func (h *TimesheetHandler) writeDay(c *gin.Context, status int) func(*model.DayEntry, *apperrors.APIError) {
	return func(entry *model.DayEntry, apiErr *apperrors.APIError) {
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}
		c.JSON(status, gin.H{"day": entry})
	}
}

func yearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_date", "year must be a number"))
		return 0, false
	}
	return year, true
}

func yearMonthParams(c *gin.Context) (int, time.Month, bool) {
	year, ok := yearParam(c)
	if !ok {
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_date", "month must be a number"))
		return 0, 0, false
	}
	return year, time.Month(month), true
}
