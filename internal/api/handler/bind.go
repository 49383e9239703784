package handler

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so field_name matches the request.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Bind decodes the JSON body into dest and validates it. On failure it
// writes a 400 fail result and returns false.
func Bind[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, domain.Fail("Invalid request body: "+err.Error()))
		return false
	}

	if err := validate.Struct(dest); err != nil {
		c.JSON(http.StatusBadRequest, validationResult(err))
		return false
	}

	return true
}

// BindQuery decodes the query string into dest.
func BindQuery[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		c.JSON(http.StatusBadRequest, domain.Fail("Invalid query parameters: "+err.Error()))
		return false
	}
	return true
}

// validationResult reports the first failing field.
func validationResult(err error) domain.Result {
	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return domain.Fail(err.Error())
	}
	first := ve[0]
	return domain.Result{
		Status:    domain.ResultFail,
		Message:   "failed " + first.Tag(),
		FieldName: first.Field(),
	}
}
