package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"tester", RoleTester},
		{"participant", RoleParticipant},
		{"unspecified", RoleUnspecified},
		{"", RoleUnspecified},
		{"admin", RoleUnknown},
		{"Tester", RoleUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateRole(tt.in), "role %q", tt.in)
	}
}

func TestResolveIdentity(t *testing.T) {
	tests := []struct {
		name              string
		primary, fallback Claims
		want              Identity
	}{
		{
			name:     "primary wins",
			primary:  Claims{ParticipantID: "P1", Role: "tester"},
			fallback: Claims{ParticipantID: "P2", Role: "participant"},
			want:     Identity{ParticipantID: "P1", Role: RoleTester},
		},
		{
			name:     "fallback fills gaps",
			primary:  Claims{Role: "participant"},
			fallback: Claims{ParticipantID: "P2", Role: "tester"},
			want:     Identity{ParticipantID: "P2", Role: RoleParticipant},
		},
		{
			name: "nothing supplied",
			want: Identity{Role: RoleUnspecified},
		},
		{
			name:     "bad role from fallback",
			fallback: Claims{ParticipantID: "P3", Role: "root"},
			want:     Identity{ParticipantID: "P3", Role: RoleUnknown},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveIdentity(tt.primary, tt.fallback))
		})
	}
}
