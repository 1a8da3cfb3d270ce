package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "number input", input: `4`, expected: "4"},
		{name: "string input", input: `"2-4"`, expected: "2-4"},
		{name: "null input", input: `null`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FlexibleString
			require.NoError(t, v.UnmarshalJSON([]byte(tt.input)))
			assert.Equal(t, tt.expected, v.Value)
		})
	}

	t.Run("should reject objects", func(t *testing.T) {
		var v FlexibleString
		assert.Error(t, v.UnmarshalJSON([]byte(`{"a":1}`)))
	})
}

func TestPreferenceSet_Tags(t *testing.T) {
	var prefs PreferenceSet
	body := `{"cuisinePreferences":["Italian"," "],"moodOrVibe":"Romantic","budgetRange":"$$","partySize":2,"location":"NYC","absoluteNogos":["loud music"],"tags":["rooftop"]}`
	require.NoError(t, json.Unmarshal([]byte(body), &prefs))

	assert.Equal(t, []string{"Italian", "Romantic", "$$", "party of 2", "NYC", "no loud music", "rooftop"}, prefs.Tags())
	assert.False(t, prefs.IsEmpty())
	assert.Equal(t, "NYC", prefs.City("Boston"))
}

func TestPreferenceSet_Empty(t *testing.T) {
	prefs := PreferenceSet{}
	assert.True(t, prefs.IsEmpty())
	assert.Empty(t, prefs.Tags())
	assert.Equal(t, "NYC", prefs.City("NYC"))
}

func TestGroundedRestaurant_JSONShape(t *testing.T) {
	r := GroundedRestaurant{
		CandidateStub: CandidateStub{Name: "Carbone", Cuisine: "Italian", PriceTier: "$$$", Neighborhood: "Greenwich Village"},
		ImageURL:      "https://img.example.com/carbone.jpg",
		Rating:        4.6,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Carbone", raw["name"])
	assert.Equal(t, "$$$", raw["priceRange"])
	assert.Equal(t, "Greenwich Village", raw["location"])
	assert.Equal(t, "https://img.example.com/carbone.jpg", raw["imageUrl"])
	assert.NotContains(t, raw, "sourceUrl")
}
