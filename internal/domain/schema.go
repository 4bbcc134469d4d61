package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var schema = validator.New(validator.WithRequiredStructEnabled())

// ValidateSchema aplica los tags validate de un tipo del dominio.
func ValidateSchema(v any) error {
	return schema.Struct(v)
}

// Validate es el mismo control que aplican los stores al cargar: esquema de
// tags más Check. Un History que no lo pasa no se puede volver a abrir.
func (h History) Validate() error {
	if h.Predictions == nil || h.Validations == nil {
		return fmt.Errorf("%w: missing predictions or validations", ErrInvalidHistory)
	}
	if err := schema.Struct(h); err != nil {
		return fmt.Errorf("%w: schema: %v", ErrInvalidHistory, err)
	}
	if err := h.Check(); err != nil {
		return fmt.Errorf("%w: consistency: %v", ErrInvalidHistory, err)
	}
	return nil
}
