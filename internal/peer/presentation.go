package peer

import (
	"github.com/tandemdrive/tandem/internal/dynamics"
	"github.com/tandemdrive/tandem/pkg/core"
)

// Presentation is what the visual layer reads after every update.
type Presentation struct {
	SpeedKmh    float64    `json:"speedKmh"`
	Nitro       [2]float64 `json:"nitro"`
	NitroActive [2]bool    `json:"nitroActive"`
	// BoostFeedback toggles exhaust and field-of-view effects.
	BoostFeedback bool       `json:"boostFeedback"`
	ToeIn         bool       `json:"toeIn"`
	ToeOut        bool       `json:"toeOut"`
	IsAuthority   bool       `json:"isAuthority"`
	Role          core.Role  `json:"role"`
	SteerAngle    [2]float64 `json:"steerAngle"`
}

func newPresentation(state core.VehicleState, toe dynamics.Toe, isAuthority bool, role core.Role) Presentation {
	return Presentation{
		SpeedKmh:      state.SpeedKmh(),
		Nitro:         state.Nitro,
		NitroActive:   state.NitroActive,
		BoostFeedback: state.AnyNitroActive(),
		ToeIn:         toe == dynamics.ToeIn,
		ToeOut:        toe == dynamics.ToeOut,
		IsAuthority:   isAuthority,
		Role:          role,
		SteerAngle:    state.SteerAngle,
	}
}
