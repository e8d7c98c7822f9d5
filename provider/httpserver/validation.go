package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	fieldErrMsg = "Error: Field validation failed on the '%s' validator"
)

// Global validator instance
var validate = validator.New()

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondValidationError(c *gin.Context, errs []ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, JSONResponseError{
		Success: false,
		Error: JSONErrorDetail{
			Message:      "validation failed",
			RequestError: errs,
		},
	})
}

func validationErrorsFrom(err error) []ValidationError {
	var result []ValidationError
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		for _, f := range verr {
			result = append(result, ValidationError{
				Field:   f.Field(),
				Message: fmt.Sprintf(fieldErrMsg, f.Tag()),
			})
		}
	}
	return result
}

// ValidateJSON validates an incoming JSON request against a struct with
// gin binding tags and validator tags.
//
// Example usage:
//
//	type LoginRequest struct {
//	    Username string `json:"username" binding:"required"`
//	    Password string `json:"password" binding:"required,min=8"`
//	}
//
//	func LoginHandler(c *gin.Context) {
//	    var req LoginRequest
//	    if !httpserver.ValidateJSON(c, &req) {
//	        return // validation failed, response already sent
//	    }
//	}
func ValidateJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondValidationError(c, validationErrorsFrom(err))
		return false
	}
	if err := validate.Struct(obj); err != nil {
		respondValidationError(c, validationErrorsFrom(err))
		return false
	}
	return true
}

// ValidateQuery validates URL query parameters against a struct with
// binding tags.
func ValidateQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		if errs := validationErrorsFrom(err); errs != nil {
			respondValidationError(c, errs)
		} else {
			respondValidationError(c, []ValidationError{{Field: "-", Message: "invalid query parameters"}})
		}
		return false
	}
	return true
}
