package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReadingStructured(t *testing.T) {
	message := `Lesotho to South Africa: Moderate. About ten cars queued at the bridge.
South Africa to Lesotho: Light. Only a couple of vehicles coming through.
Summary: The crossing is flowing well in both directions.
Advice: A good time to cross if you're heading either way.`

	r := ParseReading(message)
	assert.True(t, r.Parsed)
	assert.Equal(t, "Moderate", r.LSToSAStatus)
	assert.Equal(t, "About ten cars queued at the bridge.", r.LSToSADetail)
	assert.Equal(t, "Light", r.SAToLSStatus)
	assert.Equal(t, "Only a couple of vehicles coming through.", r.SAToLSDetail)
	assert.Equal(t, "The crossing is flowing well in both directions.", r.Summary)
	assert.Equal(t, "A good time to cross if you're heading either way.", r.Advice)
}

func TestParseReadingConversational(t *testing.T) {
	r := ParseReading("Things look pretty calm right now, you should be fine to cross.")
	assert.False(t, r.Parsed)
	assert.Empty(t, r.LSToSAStatus)
	assert.Empty(t, r.Advice)
}

func TestParseReadingPartial(t *testing.T) {
	message := `Lesotho to South Africa: Heavy. Long truck queue on the bridge.
The other direction is hard to judge from here.`

	r := ParseReading(message)
	assert.False(t, r.Parsed, "one direction alone is not a full reading")
	assert.Equal(t, "Heavy", r.LSToSAStatus)
	assert.Empty(t, r.SAToLSStatus)
}
