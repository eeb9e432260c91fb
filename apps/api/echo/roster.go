package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

type rosterApi struct {
	kind   roster.Kind
	svc    *roster.Service
	attSvc *attendance.Service
}

func registerRosterAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *roster.Service, attSvc *attendance.Service) {
	students := rosterApi{kind: roster.KindStudent, svc: svc, attSvc: attSvc}
	sg := g.Group("/students", jwt)
	sg.GET("", students.query)
	sg.POST("", students.create)
	sg.GET("/:id", students.retrieve)
	sg.PUT("/:id", students.update)
	sg.DELETE("/:id", students.destroy)
	sg.GET("/:id/log", students.entityLog)

	teachers := rosterApi{kind: roster.KindTeacher, svc: svc, attSvc: attSvc}
	tg := g.Group("/teachers", jwt, adminMiddleware())
	tg.GET("", teachers.query)
	tg.POST("", teachers.create)
	tg.GET("/:id", teachers.retrieve)
	tg.PUT("/:id", teachers.update)
	tg.DELETE("/:id", teachers.destroy)
	tg.GET("/:id/log", teachers.entityLog)
}

// Handlers

func (api *rosterApi) create(ctx echo.Context) error {
	data, err := api.bindPayload(ctx)
	if err != nil {
		return err
	}
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	ent, err := api.svc.Create(ctx.Request().Context(), scope, api.kind, data)
	if err != nil {
		return errors.Wrap(err, "creating entity")
	}
	return ctx.JSON(http.StatusCreated, serializeEntity(ent))
}

func (api *rosterApi) query(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	classKey := api.classParam(ctx)
	ents, err := api.svc.Query(ctx.Request().Context(), scope, api.kind, classKey)
	if err != nil {
		return errors.Wrap(err, "querying entities")
	}

	out := make([]interface{}, 0, len(ents))
	for _, ent := range ents {
		out = append(out, serializeEntity(ent))
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *rosterApi) retrieve(ctx echo.Context) error {
	scope, id, err := api.scopeAndID(ctx)
	if err != nil {
		return err
	}

	ent, err := api.svc.GetByID(ctx.Request().Context(), scope, api.kind, id)
	if err != nil {
		return errors.Wrap(err, "finding entity")
	}
	return ctx.JSON(http.StatusOK, serializeEntity(ent))
}

func (api *rosterApi) update(ctx echo.Context) error {
	scope, id, err := api.scopeAndID(ctx)
	if err != nil {
		return err
	}
	data, err := api.bindPayload(ctx)
	if err != nil {
		return err
	}

	ent, err := api.svc.Update(ctx.Request().Context(), scope, api.kind, id, roster.UpdateEntity(data))
	if err != nil {
		return errors.Wrap(err, "updating entity")
	}
	return ctx.JSON(http.StatusOK, serializeEntity(ent))
}

func (api *rosterApi) destroy(ctx echo.Context) error {
	scope, id, err := api.scopeAndID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), scope, api.kind, id); err != nil {
		return errors.Wrap(err, "deleting entity")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) entityLog(ctx echo.Context) error {
	scope, id, err := api.scopeAndID(ctx)
	if err != nil {
		return err
	}

	records, err := api.attSvc.EntityLog(ctx.Request().Context(), scope, api.kind, id)
	if err != nil {
		return errors.Wrap(err, "querying entity log")
	}
	if records == nil {
		records = []attendance.LogRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}

// Helpers

func (api *rosterApi) scopeAndID(ctx echo.Context) (core.Scope, int, error) {
	scope, err := getContextScope(ctx)
	if err != nil {
		return core.Scope{}, 0, err
	}
	id, err := pathID(ctx)
	if err != nil {
		return core.Scope{}, 0, err
	}
	return scope, id, nil
}

func (api *rosterApi) classParam(ctx echo.Context) string {
	if api.kind == roster.KindStudent {
		return ctx.QueryParam("grade")
	}
	return ctx.QueryParam("class")
}

// entityPayload is the request shape for both populations. Students send
// "grade", teachers send "assigned_class"; either maps to the class key.
type entityPayload struct {
	Name          string `json:"name"`
	Grade         string `json:"grade"`
	AssignedClass string `json:"assigned_class"`
	Subject       string `json:"subject"`
	Whatsapp      string `json:"whatsapp"`
	Birthdate     string `json:"birthdate"`
}

func (api *rosterApi) bindPayload(ctx echo.Context) (roster.NewEntity, error) {
	var data entityPayload
	if err := ctx.Bind(&data); err != nil {
		return roster.NewEntity{}, errors.Wrap(err, "binding entity payload")
	}

	classKey := data.Grade
	if api.kind == roster.KindTeacher {
		classKey = data.AssignedClass
	}
	ne := roster.NewEntity{
		Name:      data.Name,
		ClassKey:  classKey,
		Subject:   data.Subject,
		Contact:   data.Whatsapp,
		Birthdate: data.Birthdate,
	}
	if err := ne.Validate(); err != nil {
		return roster.NewEntity{}, err
	}
	return ne, nil
}

// Serializers

type studentResponse struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	Whatsapp     string `json:"whatsapp"`
	Avatar       string `json:"avatar"`
	Birthdate    string `json:"birthdate,omitempty"`
	Attendance   int    `json:"attendance"`
	Status       string `json:"status"`
	TotalClasses int    `json:"total_classes"`
	PresentCount int    `json:"present_count"`
	AbsentCount  int    `json:"absent_count"`
}

type teacherResponse struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	AssignedClass string `json:"assigned_class"`
	Subject       string `json:"subject"`
	Whatsapp      string `json:"whatsapp"`
	Avatar        string `json:"avatar"`
	Attendance    int    `json:"attendance"`
	Status        string `json:"status"`
	TotalClasses  int    `json:"total_classes"`
	PresentCount  int    `json:"present_count"`
	AbsentCount   int    `json:"absent_count"`
}

func serializeEntity(ent roster.Entity) interface{} {
	if ent.Kind == roster.KindTeacher {
		return teacherResponse{
			ID:            ent.ID,
			Name:          ent.Name,
			AssignedClass: ent.ClassKey,
			Subject:       ent.Subject,
			Whatsapp:      ent.Contact,
			Avatar:        ent.AvatarInitials,
			Attendance:    ent.Rate,
			Status:        string(ent.CurrentStatus),
			TotalClasses:  ent.TotalClasses,
			PresentCount:  ent.PresentCount,
			AbsentCount:   ent.AbsentCount,
		}
	}
	return studentResponse{
		ID:           ent.ID,
		Name:         ent.Name,
		Grade:        ent.ClassKey,
		Whatsapp:     ent.Contact,
		Avatar:       ent.AvatarInitials,
		Birthdate:    ent.Birthdate,
		Attendance:   ent.Rate,
		Status:       string(ent.CurrentStatus),
		TotalClasses: ent.TotalClasses,
		PresentCount: ent.PresentCount,
		AbsentCount:  ent.AbsentCount,
	}
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
