package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name                    string
		line1, city, state, zip string
		want                    Address
	}{
		{
			"suffix, state name and zip+4", "  742 Evergreen Terrace ", "springfield", "Oregon", "97403-1234",
			Address{Line1: "742 EVERGREEN TER", City: "SPRINGFIELD", State: "OR", Zip: "97403", Key: "742 evergreen ter|springfield|or|97403"},
		},
		{
			"unit is dropped", "100 Congress Avenue, Suite 200", "Austin", "tx", "78701",
			Address{Line1: "100 CONGRESS AVE", City: "AUSTIN", State: "TX", Zip: "78701", Key: "100 congress ave|austin|tx|78701"},
		},
		{
			"hash unit", "55 Water St #4B", "New York", "NY", "10041",
			Address{Line1: "55 WATER ST", City: "NEW YORK", State: "NY", Zip: "10041", Key: "55 water st|new york|ny|10041"},
		},
		{
			"incomplete address has no key", "1 Main Street", "", "TX", "75001",
			Address{Line1: "1 MAIN ST", State: "TX", Zip: "75001"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.line1, tt.city, tt.state, tt.zip))
		})
	}
}

func TestNormalize_SuffixOnlyOnWholeWords(t *testing.T) {
	a := Normalize("12 Streetside Road", "Dallas", "TX", "75201")
	assert.Equal(t, "12 STREETSIDE RD", a.Line1)
}

func TestSameParcel(t *testing.T) {
	a := Normalize("100 Congress Avenue Apt 3", "Austin", "Texas", "78701")
	b := Normalize("100 CONGRESS AVE", "austin", "TX", "78701-0001")
	assert.True(t, SameParcel(a, b))
	assert.Equal(t, a.Key, b.Key)

	c := Normalize("101 Congress Ave", "Austin", "TX", "78701")
	assert.False(t, SameParcel(a, c))
}
