package controllers

import (
	"github.com/google/uuid"

	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
)

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "field must be a uuid").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
