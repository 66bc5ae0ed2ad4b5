package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbology(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "qr"},
		{"   ", "qr"},
		{"QR", "qr"},
		{" Code128 ", "code128"},
		{"datamatrix", "datamatrix"},
		{"aztec", "aztec"},
		{"ean13", "ean13"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSymbology(tt.in), "input %q", tt.in)
	}
}

func TestSyncState_Valid(t *testing.T) {
	assert.True(t, StatePending.Valid())
	assert.True(t, StateSynced.Valid())
	assert.True(t, StateDeletePending.Valid())
	assert.False(t, SyncState("deleted").Valid())
	assert.False(t, SyncState("").Valid())
}

func TestRecord_Visible(t *testing.T) {
	assert.True(t, Record{SyncState: StatePending}.Visible())
	assert.True(t, Record{SyncState: StateSynced}.Visible())
	assert.False(t, Record{SyncState: StateDeletePending}.Visible())
}
