package api

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const maxBps = 10000

var (
	registerOnce sync.Once
	registerErr  error
)

// Tags used in request structs on top of the validator's builtins
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected binding validator")
			return
		}

		registerErr = v.RegisterValidation("eth_addr", func(fl validator.FieldLevel) bool {
			return common.IsHexAddress(fl.Field().String())
		})
		if registerErr != nil {
			return
		}

		registerErr = v.RegisterValidation("bps", func(fl validator.FieldLevel) bool {
			return fl.Field().Uint() <= maxBps
		})
	})
	return registerErr
}
