package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}
	rg := g.Group("/reports", jwt)
	rg.GET("/today", api.today)
	rg.GET("/trends", api.trends)
	rg.GET("/top-performers", api.topPerformers)
	rg.GET("/class-averages", api.classAverages)
	rg.GET("/summary", api.summary)
	rg.GET("/attention", api.attention)
}

// Handlers

func (api *reportApi) today(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	stats, err := api.svc.Today(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "aggregating today stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) trends(ctx echo.Context) error {
	days := report.TrendLimit
	if raw := ctx.QueryParam("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}

	trends, err := api.svc.Trends(ctx.Request().Context(), days)
	if err != nil {
		return errors.Wrap(err, "aggregating trends")
	}
	if trends == nil {
		trends = []report.TrendDay{}
	}
	return ctx.JSON(http.StatusOK, trends)
}

type performerResponse struct {
	Rank  int  `json:"rank"`
	Badge bool `json:"badge"`
	studentResponse
}

func (api *reportApi) topPerformers(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	performers, err := api.svc.TopPerformers(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "aggregating top performers")
	}

	out := make([]performerResponse, 0, len(performers))
	for _, p := range performers {
		out = append(out, performerResponse{
			Rank:            p.Rank,
			Badge:           p.Badge,
			studentResponse: serializeEntity(p.Student).(studentResponse),
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *reportApi) classAverages(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	averages, err := api.svc.ClassAverages(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "aggregating class averages")
	}
	if averages == nil {
		averages = []report.ClassAverage{}
	}
	return ctx.JSON(http.StatusOK, averages)
}

func (api *reportApi) summary(ctx echo.Context) error {
	summary, err := api.svc.Period(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "aggregating period summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *reportApi) attention(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	students, err := api.svc.Attention(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "aggregating attention list")
	}

	out := make([]interface{}, 0, len(students))
	for _, s := range students {
		out = append(out, serializeEntity(s))
	}
	return ctx.JSON(http.StatusOK, out)
}
