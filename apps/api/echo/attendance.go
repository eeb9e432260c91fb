package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

type attendanceApi struct {
	kind roster.Kind
	svc  *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service) {
	students := attendanceApi{kind: roster.KindStudent, svc: svc}
	ag := g.Group("/attendance", jwt)
	ag.POST("/mark", students.mark)
	ag.POST("/save", students.save)
	ag.GET("/records", students.records)
	ag.GET("/history", students.history)
	ag.GET("/log", students.log)

	teachers := attendanceApi{kind: roster.KindTeacher, svc: svc}
	tg := g.Group("/teacher-attendance", jwt, adminMiddleware())
	tg.POST("/mark", teachers.mark)
	tg.POST("/save", teachers.save)
	tg.GET("/records", teachers.records)
	tg.GET("/log", teachers.log)
}

// Handlers

type (
	markRequest struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}

	saveRequest struct {
		Date string `json:"date"`
	}

	saveResponse struct {
		Date    string `json:"date"`
		Updated int    `json:"updated"`
	}
)

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data markRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to markRequest")
	}
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	err = api.svc.Mark(ctx.Request().Context(), scope, api.kind, data.ID, roster.Status(data.Status))
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) save(ctx echo.Context) error {
	var data saveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to saveRequest")
	}
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	count, err := api.svc.Save(ctx.Request().Context(), scope, api.kind, data.Date)
	if err != nil {
		return errors.Wrap(err, "saving attendance")
	}
	return ctx.JSON(http.StatusOK, saveResponse{Date: data.Date, Updated: count})
}

// records returns today's working view keyed by entity ID.
func (api *attendanceApi) records(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	marks, err := api.svc.WorkingMarks(ctx.Request().Context(), scope, api.kind)
	if err != nil {
		return errors.Wrap(err, "querying working marks")
	}

	out := make(map[string]roster.Status, len(marks))
	for id, status := range marks {
		out[strconv.Itoa(id)] = status
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *attendanceApi) history(ctx echo.Context) error {
	var limit int
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	summaries, err := api.svc.History(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	if summaries == nil {
		summaries = []attendance.DaySummary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *attendanceApi) log(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	filter := attendance.LogFilter{
		Kind:     api.kind,
		Day:      ctx.QueryParam("date"),
		ClassKey: ctx.QueryParam("class"),
	}
	if raw := ctx.QueryParam("id"); raw != "" {
		filter.EntityID, _ = strconv.Atoi(raw)
	}

	records, err := api.svc.QueryLog(ctx.Request().Context(), scope, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance log")
	}
	if records == nil {
		records = []attendance.LogRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}
