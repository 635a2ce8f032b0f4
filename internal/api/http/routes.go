package httpapi

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/airquality"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/store"
)

var validate = newValidator()

// newValidator reports fields by their query name and knows the
// datetime_any tag: any layout dateparse understands.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		if name := f.Tag.Get("params"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("datetime_any", func(fl validator.FieldLevel) bool {
		_, ok := shape.ParseTime(fl.Field().String())
		return ok
	})
	return v
}

// ProbeReader exposes the recorded upstream probes.
type ProbeReader interface {
	Latest(target string) (store.Probe, error)
	Range(target string, from, to time.Time) ([]store.Probe, error)
}

// envelope is the success body of every list endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Results interface{} `json:"results"`
}

func list[T any](c *fiber.Ctx, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(envelope{Success: true, Count: len(items), Results: items})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *airquality.Service, probes ProbeReader, target string) {
	api := app.Group("/api")

	api.Get("/countries", func(c *fiber.Ctx) error {
		countries, err := service.Countries(c.UserContext())
		if err != nil {
			return err
		}
		return list(c, countries)
	})

	api.Get("/stations/:country", func(c *fiber.Ctx) error {
		var req stationsRequest
		if err := bindParams(c, &req); err != nil {
			return err
		}
		stations, err := service.Stations(c.UserContext(), strings.ToUpper(req.Country))
		if err != nil {
			return err
		}
		return list(c, stations)
	})

	api.Get("/parameters/:station", func(c *fiber.Ctx) error {
		var req stationRequest
		if err := bindParams(c, &req); err != nil {
			return err
		}
		sensors, err := service.StationSensors(c.UserContext(), req.Station)
		if airquality.IsNotFound(err) {
			c.Status(fiber.StatusNotFound)
			return list(c, []airquality.StationSensor{})
		}
		if err != nil {
			return err
		}
		return list(c, sensors)
	})

	api.Get("/last_measurement_date/:location/:parameter", func(c *fiber.Ctx) error {
		var req parameterRequest
		if err := bindParams(c, &req); err != nil {
			return err
		}
		date, err := service.LastMeasurementDate(c.UserContext(), req.Location, req.Parameter)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "date_utc": date})
	})

	api.Get("/sensor_latest/:location/:sensor", func(c *fiber.Ctx) error {
		var req sensorRequest
		if err := bindParams(c, &req); err != nil {
			return err
		}
		readings, err := service.SensorLatest(c.UserContext(), req.Location, req.Sensor)
		if err != nil {
			return err
		}
		return list(c, readings)
	})

	api.Get("/measurements/:location/:parameter", func(c *fiber.Ctx) error {
		var req measurementsRequest
		if err := req.bind(c); err != nil {
			return err
		}
		out, err := service.Measurements(c.UserContext(), req.query())
		if err != nil {
			return err
		}
		return list(c, out)
	})

	api.Get("/aggregated/:location/:sensor/:kind", func(c *fiber.Ctx) error {
		var req sensorRequest
		if err := bindParams(c, &req); err != nil {
			return err
		}
		out, err := service.Aggregated(c.UserContext(), req.Location, req.Sensor, strings.ToLower(c.Params("kind")))
		if err != nil {
			return err
		}
		return list(c, out)
	})

	api.Get("/catalog", func(c *fiber.Ctx) error {
		return list(c, service.Catalog())
	})

	api.Get("/probes", func(c *fiber.Ctx) error {
		var req probesRequest
		if err := req.bind(c); err != nil {
			return err
		}
		history, err := probes.Range(target, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no probes for requested range")
			}
			return err
		}
		return list(c, history)
	})
}

// Health reports liveness together with the latest probe of target.
func Health(name string, probes ProbeReader, target string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":   "ok",
			"service":  name,
			"upstream": nil,
		}
		if p, err := probes.Latest(target); err == nil {
			body["upstream"] = p
		}
		return c.JSON(body)
	}
}

// ErrorHandler renders every error as {success:false, status?, message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		aqErr    *airquality.Error
		fiberErr *fiber.Error
	)
	code := fiber.StatusInternalServerError
	body := errorBody{Message: err.Error()}
	switch {
	case errors.As(err, &aqErr):
		code = aqErr.HTTPStatus()
		body.Status = aqErr.Status
		body.Message = aqErr.Message
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		body.Message = fiberErr.Message
	}
	return c.Status(code).JSON(body)
}

type errorBody struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

type stationsRequest struct {
	Country string `params:"country" validate:"required,alpha,len=2"`
}

type stationRequest struct {
	Station int64 `params:"station" validate:"gt=0"`
}

type parameterRequest struct {
	Location  int64 `params:"location" validate:"gt=0"`
	Parameter int64 `params:"parameter" validate:"gt=0"`
}

type sensorRequest struct {
	Location int64 `params:"location" validate:"gt=0"`
	Sensor   int64 `params:"sensor" validate:"gt=0"`
}

// bindParams parses and validates route parameters into req.
func bindParams(c *fiber.Ctx, req interface{}) error {
	if err := c.ParamsParser(req); err != nil {
		return airquality.NewInvalidInputError("invalid path parameter", err)
	}
	return check(req)
}

func check(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return airquality.NewInvalidInputError(describe(err), err)
	}
	return nil
}

// describe names the offending fields of a validation error.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "invalid " + strings.Join(fields, "/")
}

// measurementsRequest holds route and query parameters of the history
// endpoint. Limit and last_days stay strings: non-numeric values are ignored.
type measurementsRequest struct {
	parameterRequest
	Agg      string `query:"agg"`
	Limit    string `query:"limit"`
	LastDays string `query:"last_days"`
	DateFrom string `query:"date_from" validate:"omitempty,datetime_any"`
	DateTo   string `query:"date_to" validate:"omitempty,datetime_any"`
}

func (r *measurementsRequest) bind(c *fiber.Ctx) error {
	if err := c.ParamsParser(&r.parameterRequest); err != nil {
		return airquality.NewInvalidInputError("invalid path parameter", err)
	}
	if err := c.QueryParser(r); err != nil {
		return airquality.NewInvalidInputError("invalid query", err)
	}
	return check(r)
}

func (r measurementsRequest) query() airquality.MeasurementQuery {
	return airquality.MeasurementQuery{
		LocationID:  r.Location,
		ParameterID: r.Parameter,
		Agg:         airquality.ParseAggregation(r.Agg),
		Limit:       r.Limit,
		LastDays:    r.LastDays,
		DateFrom:    r.DateFrom,
		DateTo:      r.DateTo,
	}
}

// probesRequest holds query parameters for the probe history endpoint.
type probesRequest struct {
	FromRaw string    `query:"from" validate:"required,datetime_any"`
	ToRaw   string    `query:"to" validate:"required,datetime_any"`
	From    time.Time
	To      time.Time `validate:"gtefield=From"`
}

func (r *probesRequest) bind(c *fiber.Ctx) error {
	r.FromRaw = c.Query("from")
	r.ToRaw = c.Query("to")
	r.From, _ = shape.ParseTime(r.FromRaw)
	r.To, _ = shape.ParseTime(r.ToRaw)
	return check(r)
}
