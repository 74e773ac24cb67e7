package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "votebooth/pkg/domain-errors"
)

func TestStage_Advance(t *testing.T) {
	tests := []struct {
		name     string
		from, to Stage
		wantCode dErrors.Code
	}{
		{"code then face", StageOTPVerified, StageFaceVerified, ""},
		{"face then queue", StageFaceVerified, StageQueued, ""},
		{"face then vote", StageFaceVerified, StageVoted, ""},
		{"queue then vote", StageQueued, StageVoted, ""},
		{"skip the face match", StageOTPVerified, StageVoted, dErrors.CodeForbidden},
		{"vote twice", StageVoted, StageVoted, dErrors.CodeConflict},
		{"restart after voting", StageVoted, StageNotStarted, dErrors.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.Advance(tt.to)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.to, got)
				return
			}
			assert.True(t, dErrors.HasCode(err, tt.wantCode))
			assert.Equal(t, tt.from, got)
		})
	}
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "FaceVerified", StageFaceVerified.String())
	assert.Equal(t, "Stage(9)", Stage(9).String())
}
