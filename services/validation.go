package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"report-desk/models"
)

// ArticleInput sind die Formularfelder für Anlage und Überarbeitung.
type ArticleInput struct {
	Title           string   `json:"title" form:"title" validate:"required,max=255"`
	PublicationDate string   `json:"publication_date" form:"publication_date" validate:"required,datetime=2006-01-02"`
	TypeOfReport    string   `json:"type_of_report" form:"type_of_report" validate:"required,report_type"`
	URL             string   `json:"url" form:"url" validate:"required,url,max=2083"`
	DetailedSummary string   `json:"detailed_summary" form:"detailed_summary" validate:"required"`
	Analysis        string   `json:"analysis" form:"analysis" validate:"required"`
	Recommendation  string   `json:"recommendation" form:"recommendation" validate:"required"`
	ImagePath       []string `json:"image_path" form:"image_path" validate:"omitempty,max=10,dive,required,max=255"`
}

// CommentInput ist der Formularinhalt eines Kommentars.
type CommentInput struct {
	Body string `json:"body" form:"body" validate:"required,max=5000"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("report_type", func(fl validator.FieldLevel) bool {
		return models.IsReportType(fl.Field().String())
	})
	return v
}

// validateStruct übersetzt validator-Fehler in feldbezogene Meldungen.
func validateStruct(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("validate input: %w", err)
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrors {
		field := fieldPath(fe)
		verr.add(field, fieldMessage(field, fe))
	}
	return verr.orNil()
}

// fieldPath schneidet den Strukturnamen ab: "ArticleInput.image_path[0]" -> "image_path.0".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.ReplaceAll(ns, "[", ".")
	return strings.ReplaceAll(ns, "]", "")
}

func fieldMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must not have more than %s items.", label, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "url":
		return fmt.Sprintf("The %s field must be a valid URL.", label)
	case "datetime":
		return fmt.Sprintf("The %s field must be a valid date.", label)
	case "report_type":
		return fmt.Sprintf("The selected %s is invalid.", label)
	}
	return fmt.Sprintf("The %s field is invalid.", label)
}
