package model

import "github.com/google/uuid"

func ensureId(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
