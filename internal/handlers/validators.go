package handlers

import (
	"fmt"
	"sync"

	"github.com/coyote/taskboard/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the enum validators used in binding tags:
// board_role, card_state and board_status.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		rules := map[string]validator.Func{
			"board_role": func(fl validator.FieldLevel) bool {
				return models.BoardRole(fl.Field().String()).Valid()
			},
			"card_state": func(fl validator.FieldLevel) bool {
				return models.CardState(fl.Field().String()).Valid()
			},
			"board_status": func(fl validator.FieldLevel) bool {
				return models.BoardStatus(fl.Field().String()).Valid()
			},
		}
		for tag, fn := range rules {
			if err = v.RegisterValidation(tag, fn); err != nil {
				return
			}
		}
	})
	return err
}
