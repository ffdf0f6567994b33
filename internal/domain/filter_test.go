package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Match(t *testing.T) {
	md := Metadata{Source: "a.pdf", Page: 3}
	tests := []struct {
		name   string
		filter Filter
		docID  string
		want   bool
	}{
		{name: "zero matches all", filter: Filter{}, docID: "d", want: true},
		{name: "source", filter: Filter{Source: "a.pdf"}, docID: "d", want: true},
		{name: "other source", filter: Filter{Source: "b.pdf"}, docID: "d", want: false},
		{name: "page", filter: Filter{Page: 3}, docID: "d", want: true},
		{name: "other page", filter: Filter{Source: "a.pdf", Page: 4}, docID: "d", want: false},
		{name: "doc id", filter: Filter{DocID: "d"}, docID: "d", want: true},
		{name: "other doc id", filter: Filter{DocID: "e", Source: "a.pdf"}, docID: "d", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.docID, md))
		})
	}
	assert.True(t, Filter{}.IsZero())
	assert.False(t, Filter{Page: 1}.IsZero())
}
