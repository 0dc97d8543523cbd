package handler

import (
	"sync"

	"basmah/internal/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain tags to gin's validator engine.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("ticketstatus", func(fl validator.FieldLevel) bool {
			return domain.TicketStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("accountstatus", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case domain.AccountActive, domain.AccountBlocked, domain.AccountDeactivated:
				return true
			}
			return false
		})
		_ = v.RegisterValidation("origin", func(fl validator.FieldLevel) bool {
			switch domain.Origin(fl.Field().String()) {
			case "", domain.OriginBookings, domain.OriginUsers:
				return true
			}
			return false
		})
	})
}
