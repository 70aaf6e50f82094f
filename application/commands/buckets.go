// Package commands defines the state-changing operations of the service.
// Each command carries its own structural validation; domain rules are
// enforced by the services behind the handlers.
package commands

import (
	apperrors "s3vectors/pkg/errors"
	"s3vectors/pkg/utils"
)

func validateStruct(s interface{}) error {
	if err := utils.ValidateStruct(s); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// CreateVectorBucketCommand creates a vector bucket
type CreateVectorBucketCommand struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
}

// Validate validates the command
func (c CreateVectorBucketCommand) Validate() error {
	return validateStruct(c)
}

// DeleteVectorBucketCommand deletes a vector bucket and everything in it
type DeleteVectorBucketCommand struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
}

// Validate validates the command
func (c DeleteVectorBucketCommand) Validate() error {
	return validateStruct(c)
}
