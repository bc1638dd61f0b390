package service

import (
	"github.com/warp-contracts/marketplace/src/utils/apperr"
)

func notEditable(entity string, state string) *apperr.AppError {
	return apperr.BadRequest("INVALID_TRANSITION", entity+" can't be modified in state "+state)
}
