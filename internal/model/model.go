package model

import (
	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
	"github.com/LeonardoBeccarini/anuja/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	FieldInputs         = entities.FieldInputs
	Crop                = entities.Crop
	Weather             = entities.Weather
	AdvisoryIssuedEvent = messages.AdvisoryIssuedEvent
)
