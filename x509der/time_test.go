package x509der_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/certwire/certwire/x509der"
)

func TestTimeCutover(t *testing.T) {
	tests := []struct {
		year int
		tag  cbasn1.Tag
	}{
		{1949, cbasn1.GeneralizedTime},
		{1950, cbasn1.UTCTime},
		{2000, cbasn1.UTCTime},
		{2049, cbasn1.UTCTime},
		{2050, cbasn1.GeneralizedTime},
	}

	for _, tc := range tests {
		v := x509der.NewTime(time.Date(tc.year, 3, 14, 1, 2, 3, 0, time.UTC))
		assert.Equal(t, tc.tag, v.Tag, "year %d", tc.year)

		der, err := v.Marshal()
		require.NoError(t, err)
		assert.Equal(t, byte(tc.tag), der[0], "year %d", tc.year)

		s := cryptobyte.String(der)
		parsed, err := x509der.ParseTime(&s)
		require.NoError(t, err)
		assert.Equal(t, tc.tag, parsed.Tag)
		assert.True(t, parsed.Time.Equal(v.Time), "year %d", tc.year)
	}
}

func TestParseTimeGolden(t *testing.T) {
	tests := []struct {
		name  string
		input string
		tag   cbasn1.Tag
		want  time.Time
	}{
		{
			"utcTime century pivot",
			"170d3030303130313030303030305a", // 000101000000Z
			cbasn1.UTCTime,
			time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"generalTime before 1950",
			"180f31393439313233313233353935395a", // 19491231235959Z
			cbasn1.GeneralizedTime,
			time.Date(1949, 12, 31, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := cryptobyte.String(mustHex(t, tc.input))
			parsed, err := x509der.ParseTime(&s)
			require.NoError(t, err)
			assert.Equal(t, tc.tag, parsed.Tag)
			assert.True(t, parsed.Time.Equal(tc.want))
		})
	}
}

func TestTimeReencodesNonCanonicalChoice(t *testing.T) {
	// Year 2000 expressed as GeneralizedTime decodes fine but must come
	// back as UTCTime.
	s := cryptobyte.String(mustHex(t, "180f32303030303130313030303030305a"))
	parsed, err := x509der.ParseTime(&s)
	require.NoError(t, err)
	assert.Equal(t, cbasn1.GeneralizedTime, parsed.Tag)

	der, err := parsed.Marshal()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "170d3030303130313030303030305a"), der)
}

func TestParseTimeRejectsNonZuluForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		// 1712312359Z: minutes-only UTCTime, BER allows it, DER does not.
		{"utcTime without seconds", "170b313731323331323335395a"},
		// 990101000000+0100: zone offset instead of Z.
		{"utcTime with offset", "17113939303130313030303030302b30313030"},
		// 19490101000000+0100
		{"generalTime with offset", "181331393439303130313030303030302b30313030"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := cryptobyte.String(mustHex(t, tc.input))
			_, err := x509der.ParseTime(&s)
			var decodeErr *x509der.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, x509der.InvalidPrimitiveValue, decodeErr.Kind)
		})
	}
}

func TestParseTimeWrongTag(t *testing.T) {
	s := cryptobyte.String(mustHex(t, "0500"))
	_, err := x509der.ParseTime(&s)
	var decodeErr *x509der.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, x509der.UnexpectedTag, decodeErr.Kind)
}

func TestValidityRoundTrip(t *testing.T) {
	v := x509der.Validity{
		NotBefore: x509der.NewTime(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		NotAfter:  x509der.NewTime(time.Date(2074, 6, 1, 12, 0, 0, 0, time.UTC)),
	}

	der, err := v.Marshal()
	require.NoError(t, err)

	s := cryptobyte.String(der)
	parsed, err := x509der.ParseValidity(&s)
	require.NoError(t, err)
	assert.True(t, parsed.NotBefore.Time.Equal(v.NotBefore.Time))
	assert.True(t, parsed.NotAfter.Time.Equal(v.NotAfter.Time))
	assert.Equal(t, cbasn1.UTCTime, parsed.NotBefore.Tag)
	assert.Equal(t, cbasn1.GeneralizedTime, parsed.NotAfter.Tag)
}
