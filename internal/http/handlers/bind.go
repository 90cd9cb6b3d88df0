package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const msgInvalidBody = "Invalid request body"

// BindJSON decodes and validates the body into out. On failure it writes a
// 400 with one human readable message per failing field, in field order.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondBadRequest(ctx, bindErrorMessages(err, out)...)
		return false
	}

	return true
}

func bindErrorMessages(err error, out interface{}) []string {
	var validationErrors validator.ValidationErrors

	if !errors.As(err, &validationErrors) {
		// bad json, type mismatch, empty or oversized body
		return []string{msgInvalidBody}
	}

	rootType := baseStructType(out)
	messages := make([]string, 0, len(validationErrors))

	for _, fieldError := range validationErrors {
		messages = append(messages, validationMessage(fieldLabel(rootType, fieldError), fieldError.Tag(), fieldError.Param()))
	}

	return messages
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// fieldLabel prefers a `label` tag, then the json name, then the Go name.
func fieldLabel(rootType reflect.Type, fieldError validator.FieldError) string {
	if rootType == nil {
		return fieldError.Field()
	}

	sf, ok := rootType.FieldByName(fieldError.StructField())
	if !ok {
		return fieldError.Field()
	}

	if label := sf.Tag.Get("label"); label != "" {
		return label
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email"
	case "min":
		return label + " must be at least " + param + " characters"
	case "max":
		return label + " must be at most " + param + " characters"
	default:
		return label + " is invalid"
	}
}
