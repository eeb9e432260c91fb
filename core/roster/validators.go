package roster

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// InitValidators hooks this package's models up to the app validator.
func InitValidators(v *validator.Validate, translator ut.Translator) {
	validate = v
}
