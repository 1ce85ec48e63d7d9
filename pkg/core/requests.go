package core

// SteerRequest carries a non-authority participant's wheel angle in degrees.
type SteerRequest struct {
	Role   Role          `json:"role"`
	Angle  float64       `json:"angle"`
	Sender ParticipantID `json:"sender"`
}

// NitroRequest carries an edge-triggered nitro button state.
type NitroRequest struct {
	Role    Role          `json:"role"`
	Pressed bool          `json:"pressed"`
	Sender  ParticipantID `json:"sender"`
}
