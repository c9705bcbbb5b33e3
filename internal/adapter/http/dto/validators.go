package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Gateway ids look like "1234-1610641025-49201"; sandbox ids may carry letters.
var wompiIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,63}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("wompi_id", validateWompiID)
	}
}

func validateWompiID(fl validator.FieldLevel) bool {
	return wompiIDRe.MatchString(fl.Field().String())
}
