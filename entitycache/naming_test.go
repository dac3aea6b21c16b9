package entitycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheName(t *testing.T) {
	tests := []struct {
		in     string
		suffix []string
		want   string
	}{
		{in: "Faction", want: "faction_cache"},
		{in: "OutfitMember", want: "outfit_member_cache"},
		{in: "OutfitMember", suffix: []string{"name"}, want: "outfit_member_name_cache"},
		{in: "HTTPServer", want: "http_server_cache"},
		{in: "Vehicle2Attachment", want: "vehicle_2_attachment_cache"},
		{in: "*ps2.Title", want: "ps_2_title_cache"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cacheName(tt.in, tt.suffix...))
		})
	}
}
