package streaming

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/pkg/core"
)

func testSnapshot() core.Snapshot {
	s := core.NewSnapshot(12.5, core.VehicleState{Pose: core.IdentityPose()})
	s.Position = mgl64.Vec3{1, 0, 42}
	s.SteerAngle = [2]float64{-10, 12}
	s.NitroActive = [2]bool{true, false}
	return s
}

func TestNewEnvelope_DecodesPayload(t *testing.T) {
	env, err := NewEnvelope(TypeSteerRequest, "p-2", core.SteerRequest{Role: core.RoleRight, Angle: 7, Sender: "p-2"})
	require.NoError(t, err)

	data, err := Encode(env)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, TypeSteerRequest, got.Type)
	assert.Equal(t, core.ParticipantID("p-2"), got.From)

	var req core.SteerRequest
	require.NoError(t, got.Decode(&req))
	assert.Equal(t, core.RoleRight, req.Role)
	assert.Equal(t, 7.0, req.Angle)
}

func TestNewEnvelope_NilPayload(t *testing.T) {
	env, err := NewEnvelope(TypeHello, "", nil)
	require.NoError(t, err)
	assert.Empty(t, env.Payload)

	var hello HelloPayload
	assert.Error(t, env.Decode(&hello))
}

func TestDecode_RejectsMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"payload":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestFrame_Snapshot(t *testing.T) {
	for _, compress := range []bool{false, true} {
		env, err := NewEnvelope(TypeSnapshot, "owner", testSnapshot())
		require.NoError(t, err)

		frame, err := EncodeFrame(env, compress)
		require.NoError(t, err)
		if compress {
			assert.Equal(t, FlagLZ4, frame[0])
		} else {
			assert.Equal(t, FlagPlain, frame[0])
		}

		got, err := DecodeFrame(frame)
		require.NoError(t, err)

		var snap core.Snapshot
		require.NoError(t, got.Decode(&snap))
		assert.Equal(t, 12.5, snap.Timestamp)
		assert.Equal(t, 42.0, snap.Position.Z())
		assert.Equal(t, [2]float64{-10, 12}, snap.SteerAngle)
		assert.True(t, snap.NitroActive[core.RoleLeft])
	}
}

func TestDecodeFrame_Malformed(t *testing.T) {
	_, err := DecodeFrame(nil)
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = DecodeFrame([]byte{7, '{', '}'})
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestValidFrame(t *testing.T) {
	env, err := NewEnvelope(TypeSnapshot, "a", testSnapshot())
	require.NoError(t, err)
	for _, compress := range []bool{false, true} {
		frame, err := EncodeFrame(env, compress)
		require.NoError(t, err)
		assert.True(t, ValidFrame(frame))
	}

	assert.False(t, ValidFrame(nil))
	assert.False(t, ValidFrame([]byte{FlagLZ4}))
	assert.False(t, ValidFrame([]byte{7, '{', '}'}))
}
