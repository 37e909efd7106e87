package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator"
	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/services/index"
	"github.com/meghashyamc/linkindex/services/scoring"
	"github.com/meghashyamc/linkindex/services/search"
)

type Validator struct {
	validator                *validator.Validate
	logger                   logger.Logger
	tagValidationDetailsOnce sync.Once
	tagValidationDetailsMap  map[string]tagValidationDetails
}

type tagValidationDetails struct {
	validatorFunc validator.Func
	// errFor explains why value failed the check.
	errFor func(value any) error
}

func New(logger logger.Logger) (*Validator, error) {
	validator := &Validator{validator: validator.New(), logger: logger}
	validator.validator.RegisterTagNameFunc(useFormOrJSONFieldNames)
	if err := validator.registerCustomValidatorsForTags(); err != nil {
		return nil, err
	}

	return validator, nil
}

// Validate checks i against its struct tags. Failures are apperrors validation errors.
func (v *Validator) Validate(i any) error {

	if err := v.validator.Struct(i); err != nil {
		v.logger.Warn("validation failed", "err", err.Error())
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fieldErr := validationErrs[0]

			tagValidationDetails, ok := v.getTagValidationDetails()[fieldErr.Tag()]
			if ok {
				return tagValidationDetails.errFor(fieldErr.Value())
			}

			switch fieldErr.Tag() {
			case "required":
				return apperrors.Newf(apperrors.ErrInvalidDocument, "missing required field '%s'", fieldErr.Field())

			case "min", "max":
				return apperrors.Newf(apperrors.ErrInvalidDocument, "value or length of field '%s' is not in the expected range", fieldErr.Field())

			}
			return apperrors.Newf(apperrors.ErrInvalidDocument, "field '%s' failed '%s' validation", fieldErr.Field(), fieldErr.Tag())
		}
		return err
	}
	return nil
}

func (v *Validator) getTagValidationDetails() map[string]tagValidationDetails {
	v.tagValidationDetailsOnce.Do(func() {
		v.tagValidationDetailsMap = map[string]tagValidationDetails{
			"valid_url":       {validatorFunc: v.isValidURL, errFor: urlError},
			"valid_tags":      {validatorFunc: v.isValidTagList, errFor: tagsError},
			"valid_range":     {validatorFunc: v.isValidRange, errFor: rangeError},
			"valid_algorithm": {validatorFunc: v.isValidAlgorithm, errFor: algorithmError},
			"valid_query":     {validatorFunc: v.isValidQuery, errFor: queryError},
		}
	})
	return v.tagValidationDetailsMap
}

func (v *Validator) registerCustomValidatorsForTags() error {

	tagValidationDetailsMap := v.getTagValidationDetails()

	for tag, tagValidationDetails := range tagValidationDetailsMap {
		if err := v.validator.RegisterValidation(tag, tagValidationDetails.validatorFunc); err != nil {
			v.logger.Error("failed to register custom validator function", "tag", tag, "err", err.Error())
			return err
		}
	}
	return nil
}

func useFormOrJSONFieldNames(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func (v *Validator) isValidURL(fl validator.FieldLevel) bool {
	return urlError(fl.Field().String()) == nil
}

// isValidTagList accepts a comma separated string or a list of tag names.
func (v *Validator) isValidTagList(fl validator.FieldLevel) bool {
	return tagsError(fl.Field().Interface()) == nil
}

func (v *Validator) isValidRange(fl validator.FieldLevel) bool {
	return rangeError(fl.Field().String()) == nil
}

func (v *Validator) isValidAlgorithm(fl validator.FieldLevel) bool {
	return algorithmError(fl.Field().String()) == nil
}

func (v *Validator) isValidQuery(fl validator.FieldLevel) bool {
	query := fl.Field().String()
	if strings.TrimSpace(query) == "" {
		v.logger.Warn("query is empty", "query", query)
		return false
	}

	return true
}

func urlError(value any) error {
	raw, _ := value.(string)
	_, err := index.CanonicalURL(raw)
	return err
}

func tagsError(value any) error {
	var err error
	switch tags := value.(type) {
	case string:
		_, err = searchdb.ParseTagList(tags)
	case []string:
		_, err = searchdb.ParseTags(tags)
	}
	return err
}

func rangeError(value any) error {
	raw, _ := value.(string)
	_, err := search.ParseRange(raw, search.DefaultPageSize, search.MaxPageWidth)
	return err
}

func algorithmError(value any) error {
	raw, _ := value.(string)
	_, err := scoring.Parse(raw)
	return err
}

func queryError(any) error {
	return apperrors.New(apperrors.ErrEmptyQuery, "query cannot be empty")
}
