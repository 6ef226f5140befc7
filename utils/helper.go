package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func UniqueSlice[T comparable](input []T) []T {
	seen := make(map[T]struct{}, len(input))
	result := make([]T, 0, len(input))
	for _, v := range input {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

func DereferencePtr[T any](ptr *T) T {
	var zero T
	if ptr == nil {
		return zero
	}
	return *ptr
}

func Ptr[T any](v T) *T {
	return &v
}

// ProcessValidationErrors flattens validator errors into field => message.
func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errorResponse["error"] = err.Error()
		return errorResponse
	}
	for _, fieldErr := range validationErrors {
		field := strings.ToLower(fieldErr.Field())
		errorResponse[field] = fmt.Sprintf("failed on '%s' validation", fieldErr.Tag())
	}
	return errorResponse
}
