package service

import (
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
)

var (
	tracer   = otel.Tracer("github.com/d60-Lab/storefront/internal/service")
	validate = validator.New(validator.WithRequiredStructEnabled())
)
