package controllers

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/hutmovies/hutmovies/internal/controllers")
