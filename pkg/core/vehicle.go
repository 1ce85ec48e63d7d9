package core

import (
	"github.com/go-gl/mathgl/mgl64"
)

// NitroEpsilon is the smallest nitro amount that still allows boosting.
const NitroEpsilon = 0.001

// Pose is a world-space position and orientation.
type Pose struct {
	Position    mgl64.Vec3 `json:"position"`
	Orientation mgl64.Quat `json:"orientation"`
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// VehicleState is the authoritative state of the shared car.
// Arrays are indexed by Role.
type VehicleState struct {
	Pose
	LinearVelocity  mgl64.Vec3 `json:"linearVelocity"`
	AngularVelocity mgl64.Vec3 `json:"angularVelocity"`
	SteerAngle      [2]float64 `json:"steerAngle"`
	Nitro           [2]float64 `json:"nitro"`
	NitroActive     [2]bool    `json:"nitroActive"`
}

// SpeedKmh returns the magnitude of the linear velocity in km/h.
func (s VehicleState) SpeedKmh() float64 {
	return MsToKmh(s.LinearVelocity.Len())
}

// AnyNitroActive reports whether either role is boosting.
func (s VehicleState) AnyNitroActive() bool {
	return s.NitroActive[RoleLeft] || s.NitroActive[RoleRight]
}

// Snapshot is a timestamped copy of VehicleState broadcast by the authority.
// Timestamp is in seconds on the shared session clock.
type Snapshot struct {
	Timestamp float64 `json:"t"`
	VehicleState
}

// NewSnapshot captures state at timestamp t.
func NewSnapshot(t float64, state VehicleState) Snapshot {
	return Snapshot{Timestamp: t, VehicleState: state}
}
