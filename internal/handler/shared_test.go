package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration", &billing.ConfigurationError{Field: "apr", Reason: "must not be negative"}, http.StatusUnprocessableEntity},
		{"invalid input", fmt.Errorf("wrapped: %w", &billing.InvalidInputError{Field: "amount"}), http.StatusBadRequest},
		{"not found", fmt.Errorf("card x: %w", services.ErrNotFound), http.StatusNotFound},
		{"conflict", services.ErrConflict, http.StatusConflict},
		{"cycle open", fmt.Errorf("%w: ends 2024-01-31", errCycleOpen), http.StatusConflict},
		{"storage", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
