package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/touchstone3d/semseg/internal/dataset"
	"github.com/touchstone3d/semseg/internal/evaluator"
	"github.com/touchstone3d/semseg/pkg/metrics"
	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

func createResponse[T any](body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{Body: body, Error: &errMsg}
	}
	return StdResponse[T]{Body: body}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var e *fiber.Error
	switch {
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, evaluator.ErrRunNotFound),
		errors.Is(err, dataset.ErrIndexOutOfRange):
		return fiber.StatusNotFound
	case metrics.IsValidation(err), pointcloud.IsValidation(err),
		errors.Is(err, dataset.ErrMalformedSample):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
