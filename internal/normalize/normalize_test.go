package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhone(t *testing.T) {
	n := Default()

	// Every prefix variant collapses to the same 10 digits.
	for _, raw := range []string{
		"+919876543210",
		"09876543210",
		"919876543210",
		"919876543210 ",
		"98765 43210",
		"0919876543210",
	} {
		got, err := n.Phone(raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, "9876543210", got, "input %q", raw)
	}
}

func TestPhone_Invalid(t *testing.T) {
	n := Default()

	tests := []struct {
		name string
		raw  string
	}{
		{"nine digits", "987654321"},
		{"eleven digits no zero", "19876543210"},
		{"empty", ""},
		{"letters only", "call me"},
		{"too long", "9198765432101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Phone(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidIdentity))
		})
	}
}

func TestEmail(t *testing.T) {
	got, err := Email("  Ravi.Kumar@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ravi.kumar@example.com", got)

	_, err = Email("not-an-email")
	assert.True(t, errors.Is(err, ErrInvalidIdentity))

	_, err = Email("   ")
	assert.True(t, errors.Is(err, ErrInvalidIdentity))
}

func TestName(t *testing.T) {
	n := Default()

	tests := []struct {
		raw  string
		want string
	}{
		{"Dr. Ravi Kumar", "ravi kumar"},
		{"MR  ravi   kumar", "ravi kumar"},
		{"Smt. Añjali Démo", "anjali demo"},
		{"ravi-kumar (GB)", "ravikumar gb"},
		{"shri ravi", "ravi"},
	}
	for _, tt := range tests {
		got, err := n.Name(tt.raw)
		require.NoError(t, err, "input %q", tt.raw)
		assert.Equal(t, tt.want, got, "input %q", tt.raw)
	}
}

func TestName_Invalid(t *testing.T) {
	n := Default()

	for _, raw := range []string{"", "   ", "12345", "!!!"} {
		_, err := n.Name(raw)
		assert.True(t, errors.Is(err, ErrInvalidIdentity), "input %q", raw)
	}
}

func TestName_CustomHonorifics(t *testing.T) {
	n := Normalizer{Honorifics: []string{"capt"}}

	got, err := n.Name("Capt. Ravi")
	require.NoError(t, err)
	assert.Equal(t, "ravi", got)

	// Default honorifics no longer apply.
	got, err = n.Name("Dr Ravi")
	require.NoError(t, err)
	assert.Equal(t, "dr ravi", got)
}

func TestOrderKey(t *testing.T) {
	assert.Equal(t, "GB1234", OrderKey("#GB1234"))
	assert.Equal(t, "GB1234", OrderKey("  GB1234  "))
	assert.Equal(t, "GB1234", OrderKey("# GB1234"))
	assert.Equal(t, "", OrderKey("  "))
}
