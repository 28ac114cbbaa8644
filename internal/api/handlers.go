// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/wneessen/soil-temperature/internal/coordinator"
	"github.com/wneessen/soil-temperature/internal/presenter"
	"github.com/wneessen/soil-temperature/internal/soil"
)

var validate = validator.New()

// readingsQuery holds the optional filters of the readings endpoint.
type readingsQuery struct {
	Kind      string `query:"kind" validate:"omitempty,oneof=current summary"`
	Sensor    string `query:"sensor" validate:"omitempty,oneof=temperature moisture"`
	Statistic string `query:"statistic" validate:"omitempty,oneof=max min mean"`
}

func (q readingsQuery) matches(reading presenter.Reading) bool {
	if q.Kind != "" && string(reading.Kind) != q.Kind {
		return false
	}
	if q.Sensor != "" && string(reading.Sensor) != q.Sensor {
		return false
	}
	if q.Statistic != "" && string(reading.Statistic) != q.Statistic {
		return false
	}
	return true
}

type stateResponse struct {
	Units       soil.UnitSystem `json:"units"`
	State       *soil.State     `json:"state"`
	Refreshing  bool            `json:"refreshing"`
	Interval    string          `json:"interval"`
	NextRun     *time.Time      `json:"next_run,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	LastErrorAt *time.Time      `json:"last_error_at,omitempty"`
}

func (s *Server) health(c *fiber.Ctx) error {
	if s.coordinator.State() == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
	}
	if s.coordinator.LastError() != nil {
		return c.JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listReadings(c *fiber.Ctx) error {
	var query readingsQuery
	if err := c.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	all := s.readings.Readings()
	readings := make([]presenter.Reading, 0, len(all))
	for _, reading := range all {
		if query.matches(reading) {
			readings = append(readings, reading)
		}
	}
	return c.JSON(fiber.Map{
		"units":    s.readings.Units(),
		"readings": readings,
	})
}

func (s *Server) getReading(c *fiber.Ctx) error {
	reading, ok := s.readings.Lookup(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown reading")
	}
	return c.JSON(reading)
}

func (s *Server) getState(c *fiber.Ctx) error {
	response := stateResponse{
		Units:      s.readings.Units(),
		State:      s.coordinator.State(),
		Refreshing: s.coordinator.Refreshing(),
		Interval:   s.coordinator.Interval().String(),
	}
	if next, err := s.coordinator.NextRun(); err == nil {
		response.NextRun = &next
	}
	if err := s.coordinator.LastError(); err != nil {
		at := s.coordinator.LastErrorAt()
		response.LastError = err.Error()
		response.LastErrorAt = &at
	}
	return c.JSON(response)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	if s.coordinator.Refreshing() {
		return fiber.NewError(fiber.StatusConflict, coordinator.ErrRefreshInProgress.Error())
	}
	if !s.limiter.Allow() {
		return fiber.NewError(fiber.StatusTooManyRequests, "refresh rate limit exceeded")
	}

	err := s.coordinator.RequestRefresh()
	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "refresh requested"})
	case errors.Is(err, coordinator.ErrRefreshInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, coordinator.ErrNotStarted):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
